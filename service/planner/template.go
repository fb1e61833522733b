package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/opsagent/model"
	"github.com/viant/opsagent/model/types"
)

const (
	keywordScore = 2.0
	overlapScore = 0.1
)

// TemplateCatalog provides scenario templates. A catalog without templates
// matches nothing.
type TemplateCatalog interface {
	Templates() []*model.Template
	Template(id string) (*model.Template, bool)
}

// Templates returns the scenario templates.
func (s *Service) Templates() []*model.Template {
	if templates, ok := s.catalog.(TemplateCatalog); ok {
		return templates.Templates()
	}
	return nil
}

// Template returns one scenario template.
func (s *Service) Template(id string) (*model.Template, error) {
	if templates, ok := s.catalog.(TemplateCatalog); ok {
		if ret, ok := templates.Template(id); ok {
			return ret, nil
		}
	}
	return nil, types.NewNotFoundError("planner.Template", "template", id)
}

// MatchTemplate returns the template text resembles most, or nil.
func (s *Service) MatchTemplate(text string) *model.Template {
	return MatchTemplate(s.Templates(), text)
}

// MatchTemplate scores each template by its keywords and by the characters
// text shares with its example. The first best scoring template wins.
func MatchTemplate(templates []*model.Template, text string) *model.Template {
	lower := strings.ToLower(text)
	chars := map[rune]bool{}
	for _, r := range text {
		chars[r] = true
	}
	var best *model.Template
	bestScore := 0.0
	for _, template := range templates {
		score := 0.0
		for _, keyword := range template.Keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				score += keywordScore
				break
			}
		}
		shared := map[rune]bool{}
		for _, r := range template.Example {
			if chars[r] {
				shared[r] = true
			}
		}
		score += float64(len(shared)) * overlapScore
		if score > bestScore {
			best, bestScore = template, score
		}
	}
	return best
}

// Enrich classifies text, fills the entities it misses from the matched
// template, and reports a normalized wording and a complexity level.
func (s *Service) Enrich(ctx context.Context, text string) (*model.Enrichment, error) {
	intent, err := s.classify(ctx, text)
	if err != nil {
		return nil, err
	}
	entities := model.CloneMap(intent.Entities)
	template := s.MatchTemplate(text)
	if template != nil {
		for key, value := range template.Defaults {
			if _, ok := entities[key]; !ok {
				entities[key] = value
			}
		}
	}
	return &model.Enrichment{
		Input:      text,
		Entities:   entities,
		Template:   template,
		Normalized: Normalize(text, entities),
		Complexity: Complexity(entities),
	}, nil
}

// Normalize replaces a relative date with its calendar date and spells out a
// competitor pricing strategy.
func Normalize(text string, entities map[string]interface{}) string {
	ret := text
	if date, ok := entities[model.EntityDate].(map[string]interface{}); ok {
		original, _ := date["original"].(string)
		formatted, _ := date["formatted"].(string)
		if original != "" && formatted != "" {
			ret = strings.ReplaceAll(ret, original, formatted)
		}
	}
	reference, ok := entities[model.EntityCompetitorReference].(map[string]interface{})
	if !ok {
		return ret
	}
	direction := "高"
	switch reference["type"] {
	case "lower":
		direction = "低"
	case "higher":
	default:
		return ret
	}
	if amount, ok := reference["amount"]; ok {
		return ret + fmt.Sprintf(" (实际策略: 比%v%s%v元)", reference["reference"], direction, amount)
	}
	if percentage, ok := reference["percentage"]; ok {
		return ret + fmt.Sprintf(" (实际策略: 比%v%s%v%%)", reference["reference"], direction, percentage)
	}
	return ret
}

// Complexity rates a request by the number of entities it carries; a
// competitor reference, a nationwide region and a product series add to it.
func Complexity(entities map[string]interface{}) string {
	score := float64(len(entities)) * 0.5
	if _, ok := entities[model.EntityCompetitorReference]; ok {
		score++
	}
	if region, ok := entities[model.EntityRegion]; ok && strings.Contains(fmt.Sprint(region), Nationwide) {
		score += 0.5
	}
	if _, ok := entities[model.EntityProductSeries]; ok {
		score++
	}
	switch {
	case score < 1:
		return model.ComplexitySimple
	case score < 3:
		return model.ComplexityMedium
	}
	return model.ComplexityComplex
}
