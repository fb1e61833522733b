package classifier

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/viant/opsagent/model"
)

const han = `[\x{4e00}-\x{9fa5}]`

var (
	pricePrefixed  = regexp.MustCompile(`(?i)(?:定价|价格|售价|priced?(?:\s+at)?)\s*[：:为]?\s*[¥￥$]?\s*(\d+(?:\.\d{1,2})?)`)
	priceCurrency  = regexp.MustCompile(`(?i)(?:[¥￥]\s*(\d+(?:\.\d{1,2})?)|(\d+(?:\.\d{1,2})?)\s*(?:元|块|yuan|rmb))`)
	percentage     = regexp.MustCompile(`(\d+(?:\.\d{1,2})?)\s*[%％]`)
	absoluteDate   = regexp.MustCompile(`(\d{1,2}月\d{1,2}日|\d{4}[-/]\d{1,2}[-/]\d{1,2})`)
	discountZH     = regexp.MustCompile(`满\s*(\d+)\s*减\s*(\d+)`)
	discountEN     = regexp.MustCompile(`(?i)(\d+)\s*off\s+(?:over|above)\s+(\d+)`)
	skuCount       = regexp.MustCompile(`(?i)(\d+)\s*个?\s*skus?`)
	storeCount     = regexp.MustCompile(`(?:(\d+)\s*家\s*门店|(\d+)\s*(?i:stores?))`)
	durationZH     = regexp.MustCompile(`(?:持续|为期)\s*(\d+)\s*(天|周|个月)`)
	durationEN     = regexp.MustCompile(`(?i)for\s+(\d+)\s+(days?|weeks?|months?)`)
	seriesZH       = regexp.MustCompile(`(` + han + `{2,6})系列`)
	seriesEN       = regexp.MustCompile(`(?i)\b([a-z]+)\s+series\b`)
	category       = regexp.MustCompile(`(` + han + `{2,6})类(?:产品)?`)
	fullLine       = regexp.MustCompile(`全线(` + han + `{2,6})(?:产品)?`)
	competitorAmt  = regexp.MustCompile(`比竞品(低|高)(\d+(?:\.\d{1,2})?)\s*元`)
	competitorPct  = regexp.MustCompile(`比竞品(低|高)(\d+(?:\.\d{1,2})?)\s*[%％]`)
	brandAmt       = regexp.MustCompile(`比([\x{4e00}-\x{9fa5}a-zA-Z]+)(便宜|贵)(\d+(?:\.\d{1,2})?)\s*元`)
	brandPct       = regexp.MustCompile(`比([\x{4e00}-\x{9fa5}a-zA-Z]+)(便宜|贵)(\d+(?:\.\d{1,2})?)\s*[%％]`)
	competitorEN   = regexp.MustCompile(`(?i)(\d+(?:\.\d{1,2})?)\s*(yuan|%)\s+(cheaper|lower|higher|more expensive)\s+than\s+([a-z][\w'-]*)`)
	competitorRef  = regexp.MustCompile(`(?i)对标竞品|参照竞品|竞品定价|match(?:ing)?\s+competitors?`)
	quotedName     = regexp.MustCompile(`["「“'《]([^"」”'》]+)["」”'》]`)
	launchNameZH   = regexp.MustCompile(`(?:上市|发布|新品|推出)[：:是]?\s*([^，,。\s]+)`)
	launchNameEN   = regexp.MustCompile(`(?i)launch(?:es|ing)?\s+(?:the\s+|a\s+)?(?:new\s+)?(.+?)\s+(?:nationwide|at|on|in|across|for)\b`)
	seriesDateWord = []string{"下周", "本周", "上周", "明天", "今天", "昨天", "后天"}
	commonSeries   = []string{"川香", "麻辣", "香辣", "黑椒", "芝士", "照烧", "藤椒", "酸辣", "咖喱", "经典", "招牌", "新品", "限定", "季节", "早餐", "套餐", "小食", "饮品"}
)

var regionAliases = []struct {
	alias  string
	region string
}{
	{"全国", "全国"}, {"华东", "华东"}, {"华南", "华南"}, {"华北", "华北"},
	{"华中", "华中"}, {"西南", "西南"}, {"西北", "西北"}, {"东北", "东北"},
	{"nationwide", "全国"}, {"national", "全国"}, {"east china", "华东"}, {"south china", "华南"},
	{"north china", "华北"}, {"central china", "华中"}, {"southwest", "西南"}, {"northwest", "西北"},
	{"northeast", "东北"},
}

// ExtractEntities returns the entities found in text; relative dates resolve against now.
func ExtractEntities(text string, now time.Time) map[string]interface{} {
	ret := map[string]interface{}{}
	if price, ok := extractPrice(text); ok {
		ret[model.EntityPrice] = price
	}
	if date := resolveRelativeDate(text, now); date != nil {
		ret[model.EntityDate] = date
	} else if match := absoluteDate.FindStringSubmatch(text); match != nil {
		ret[model.EntityDate] = match[1]
	}
	if region := extractRegion(text); region != "" {
		ret[model.EntityRegion] = region
	}
	if match := percentage.FindStringSubmatch(text); match != nil {
		ret[model.EntityPercentage] = toFloat(match[1])
	}
	if match := discountZH.FindStringSubmatch(text); match != nil {
		ret[model.EntityDiscount] = map[string]interface{}{"threshold": toInt(match[1]), "reduction": toInt(match[2])}
	} else if match := discountEN.FindStringSubmatch(text); match != nil {
		ret[model.EntityDiscount] = map[string]interface{}{"threshold": toInt(match[2]), "reduction": toInt(match[1])}
	}
	if series := extractSeries(text); series != "" {
		ret[model.EntityProductSeries] = series
	}
	if reference := extractCompetitor(text); reference != nil {
		ret[model.EntityCompetitorReference] = reference
	}
	if match := skuCount.FindStringSubmatch(text); match != nil {
		ret[model.EntitySKUCount] = toInt(match[1])
	}
	if match := storeCount.FindStringSubmatch(text); match != nil {
		ret[model.EntityStoreCount] = toInt(firstNonEmpty(match[1:]...))
	}
	if duration := extractDuration(text); duration != nil {
		ret[model.EntityDuration] = duration
	}
	if name := extractProductName(text); name != "" {
		ret[model.EntityProductName] = name
	}
	return ret
}

func extractPrice(text string) (float64, bool) {
	if match := pricePrefixed.FindStringSubmatch(text); match != nil {
		return toFloat(match[1]), true
	}
	if match := priceCurrency.FindStringSubmatch(text); match != nil {
		return toFloat(firstNonEmpty(match[1:]...)), true
	}
	return 0, false
}

func extractRegion(text string) string {
	lower := strings.ToLower(text)
	best, region := -1, ""
	for _, candidate := range regionAliases {
		if index := strings.Index(lower, candidate.alias); index >= 0 && (best == -1 || index < best) {
			best, region = index, candidate.region
		}
	}
	return region
}

func extractSeries(text string) string {
	for _, loc := range seriesZH.FindAllStringSubmatchIndex(text, -1) {
		if before, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); before == '周' {
			continue
		}
		name := text[loc[2]:loc[3]]
		if hasAnyPrefix(name, seriesDateWord) {
			continue
		}
		return name + "系列"
	}
	if match := category.FindStringSubmatch(text); match != nil {
		return match[1] + "类"
	}
	if match := fullLine.FindStringSubmatch(text); match != nil {
		return strings.TrimSuffix(match[1], "产品") + "全系"
	}
	if match := seriesEN.FindStringSubmatch(text); match != nil {
		return strings.ToLower(match[1]) + " series"
	}
	for _, series := range commonSeries {
		if strings.Contains(text, series) {
			return series + "系列"
		}
	}
	return ""
}

func extractCompetitor(text string) map[string]interface{} {
	direction := func(value string) string {
		switch value {
		case "低", "便宜", "cheaper", "lower":
			return "lower"
		}
		return "higher"
	}
	if match := competitorAmt.FindStringSubmatch(text); match != nil {
		return map[string]interface{}{"type": direction(match[1]), "amount": toFloat(match[2]), "reference": "竞品"}
	}
	if match := competitorPct.FindStringSubmatch(text); match != nil {
		return map[string]interface{}{"type": direction(match[1]), "percentage": toFloat(match[2]), "reference": "竞品"}
	}
	if match := brandAmt.FindStringSubmatch(text); match != nil {
		return map[string]interface{}{"type": direction(match[2]), "amount": toFloat(match[3]), "reference": match[1]}
	}
	if match := brandPct.FindStringSubmatch(text); match != nil {
		return map[string]interface{}{"type": direction(match[2]), "percentage": toFloat(match[3]), "reference": match[1]}
	}
	if match := competitorEN.FindStringSubmatch(text); match != nil {
		ret := map[string]interface{}{"type": direction(strings.ToLower(match[3])), "reference": match[4]}
		if match[2] == "%" {
			ret["percentage"] = toFloat(match[1])
		} else {
			ret["amount"] = toFloat(match[1])
		}
		return ret
	}
	if competitorRef.MatchString(text) {
		return map[string]interface{}{"type": "reference", "reference": "竞品"}
	}
	return nil
}

func extractDuration(text string) map[string]interface{} {
	var value int
	var unit string
	if match := durationZH.FindStringSubmatch(text); match != nil {
		value, unit = toInt(match[1]), match[2]
	} else if match := durationEN.FindStringSubmatch(text); match != nil {
		value, unit = toInt(match[1]), strings.ToLower(match[2])
	} else {
		return nil
	}
	days := value
	switch strings.TrimSuffix(unit, "s") {
	case "周", "week":
		days = value * 7
	case "个月", "month":
		days = value * 30
	}
	return map[string]interface{}{"value": value, "unit": unit, "days": days}
}

func extractProductName(text string) string {
	if match := quotedName.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	if match := launchNameZH.FindStringSubmatch(text); match != nil {
		return match[1]
	}
	if match := launchNameEN.FindStringSubmatch(text); match != nil {
		return strings.TrimSpace(match[1])
	}
	return ""
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func toFloat(value string) float64 {
	ret, _ := strconv.ParseFloat(value, 64)
	return ret
}

func toInt(value string) int {
	ret, _ := strconv.Atoi(value)
	return ret
}
