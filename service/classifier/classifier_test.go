package classifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"
	"github.com/viant/opsagent/catalog"
	"github.com/viant/opsagent/internal/clock"
	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/service/dao/definition"
	"github.com/viant/opsagent/service/meta"
)

// a Wednesday
var now = time.Date(2025, 6, 4, 10, 0, 0, 0, time.UTC)

func TestKeyword_Classify(t *testing.T) {
	definitions := definition.New(meta.New(afs.New(), catalog.URL, &catalog.FS))
	require.NoError(t, definitions.Load(context.Background()))
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	testCases := []struct {
		description      string
		text             string
		expectType       string
		expectConfidence float64
		expectAgents     []string
		expectEntities   map[string]interface{}
	}{
		{
			description:      "seasonal launch",
			text:             "夏季限定芒果系列产品，6月1日全国上市，定价28元",
			expectType:       "seasonal_launch",
			expectConfidence: 2.0/9 + 0.3,
			expectAgents:     []string{"product-agent", "marketing-agent"},
			expectEntities: map[string]interface{}{
				model.EntityPrice:         28.0,
				model.EntityDate:          "6月1日",
				model.EntityRegion:        "全国",
				model.EntityProductSeries: "夏季限定芒果系列",
			},
		},
		{
			description:      "campaign with discount",
			text:             "配置春节满100减20活动，全国门店参与",
			expectType:       "campaign_setup",
			expectConfidence: 1.0/9 + 0.3,
			expectAgents:     []string{"marketing-agent"},
			expectEntities: map[string]interface{}{
				model.EntityDiscount: map[string]interface{}{"threshold": 100, "reduction": 20},
				model.EntityRegion:   "全国",
			},
		},
		{
			description:      "price cut with quantities",
			text:             "下周三华东区降价10%，比竞品低2元，涉及8个SKU，120家门店，持续2周",
			expectType:       "price_adjust",
			expectConfidence: 1.0/8 + 0.3,
			expectAgents:     []string{"pricing-agent"},
			expectEntities: map[string]interface{}{
				model.EntityDate:                map[string]interface{}{"original": "下周三", "resolved": "2025-06-11", "formatted": "6月11日"},
				model.EntityRegion:              "华东",
				model.EntityPercentage:          10.0,
				model.EntityCompetitorReference: map[string]interface{}{"type": "lower", "amount": 2.0, "reference": "竞品"},
				model.EntitySKUCount:            8,
				model.EntityStoreCount:          120,
				model.EntityDuration:            map[string]interface{}{"value": 2, "unit": "周", "days": 14},
			},
		},
		{
			description:      "english launch",
			text:             "Launch the summer mango burger nationwide at 28 yuan tomorrow",
			expectType:       "product_launch",
			expectConfidence: 1.0/8 + 0.3,
			expectAgents:     []string{"product-agent"},
			expectEntities: map[string]interface{}{
				model.EntityPrice:       28.0,
				model.EntityRegion:      "全国",
				model.EntityProductName: "summer mango burger",
				model.EntityDate:        map[string]interface{}{"original": "tomorrow", "resolved": "2025-06-05", "formatted": "6月5日"},
			},
		},
		{
			description:    "unknown",
			text:           "hello world",
			expectType:     UnknownIntent,
			expectEntities: map[string]interface{}{},
		},
	}
	srv := NewKeyword(definitions)
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			intent, err := srv.Classify(context.Background(), testCase.text)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectType, intent.Type)
			assert.InDelta(t, testCase.expectConfidence, intent.Confidence, 0.0001)
			assert.Equal(t, testCase.expectAgents, intent.RequiredAgents)
			if len(testCase.expectEntities) == 0 {
				assert.Empty(t, intent.Entities)
			}
			for k, v := range testCase.expectEntities {
				assert.Equal(t, v, intent.Entities[k], k)
			}
		})
	}
}

func TestExtractEntities(t *testing.T) {
	testCases := []struct {
		description string
		text        string
		key         string
		expect      interface{}
	}{
		{description: "longest relative phrase wins", text: "大后天上线", key: model.EntityDate, expect: map[string]interface{}{"original": "大后天", "resolved": "2025-06-07", "formatted": "6月7日"}},
		{description: "weekday two weeks ahead", text: "下下周一开始", key: model.EntityDate, expect: map[string]interface{}{"original": "下下周一", "resolved": "2025-06-16", "formatted": "6月16日"}},
		{description: "weekday this week", text: "本周日执行", key: model.EntityDate, expect: map[string]interface{}{"original": "本周日", "resolved": "2025-06-08", "formatted": "6月8日"}},
		{description: "quarter end", text: "季末前完成", key: model.EntityDate, expect: map[string]interface{}{"original": "季末", "resolved": "2025-06-30", "formatted": "6月30日"}},
		{description: "next quarter", text: "下季度上线", key: model.EntityDate, expect: map[string]interface{}{"original": "下季度", "resolved": "2025-07-01", "formatted": "7月1日"}},
		{description: "absolute date", text: "2025-07-01起执行", key: model.EntityDate, expect: "2025-07-01"},
		{description: "brand competitor", text: "比麦当劳便宜3元", key: model.EntityCompetitorReference, expect: map[string]interface{}{"type": "lower", "amount": 3.0, "reference": "麦当劳"}},
		{description: "competitor phrase", text: "对标竞品调整", key: model.EntityCompetitorReference, expect: map[string]interface{}{"type": "reference", "reference": "竞品"}},
		{description: "full line series", text: "全线饮品产品", key: model.EntityProductSeries, expect: "饮品全系"},
		{description: "common series", text: "麻辣口味降价", key: model.EntityProductSeries, expect: "麻辣系列"},
		{description: "series after week word", text: "下周新品系列", key: model.EntityProductSeries, expect: "新品系列"},
		{description: "quoted product", text: "发布「芒果冰沙」", key: model.EntityProductName, expect: "芒果冰沙"},
		{description: "launch product", text: "推出：芒果冰沙，定价18元", key: model.EntityProductName, expect: "芒果冰沙"},
		{description: "english discount", text: "20 off over 100 for 7 days", key: model.EntityDiscount, expect: map[string]interface{}{"threshold": 100, "reduction": 20}},
		{description: "english duration", text: "20 off over 100 for 7 days", key: model.EntityDuration, expect: map[string]interface{}{"value": 7, "unit": "days", "days": 7}},
		{description: "english stores", text: "roll out to 300 stores", key: model.EntityStoreCount, expect: 300},
		{description: "yen sign price", text: "¥19.9", key: model.EntityPrice, expect: 19.9},
		{description: "no price without currency", text: "6月1日上线", key: model.EntityPrice},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			entities := ExtractEntities(testCase.text, now)
			assert.Equal(t, testCase.expect, entities[testCase.key])
		})
	}
}
