package extraction

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"silkroute/internal/domain"
)

// KeywordMode selects the capture window of a keyword rule.
type KeywordMode string

const (
	KeywordModeSameLine  KeywordMode = "same_line"
	KeywordModeNextLines KeywordMode = "next_lines"
)

// ruleConfigSchema constrains the JSON shape of stored rule_config
// values. Configurations are validated here, when a template is loaded
// or saved, so the extractor itself never sees a malformed rule.
const ruleConfigSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["type"],
	"properties": {
		"type": {"enum": ["regex", "keyword", "position"]},
		"pattern": {"type": "string", "minLength": 1},
		"group": {"type": "integer", "minimum": 0},
		"anchor": {"type": "string", "minLength": 1},
		"mode": {"enum": ["same_line", "next_lines"]},
		"lines": {"type": "integer", "minimum": 1},
		"rect": {
			"type": "object",
			"required": ["x", "y", "w", "h"],
			"properties": {
				"x": {"type": "number"},
				"y": {"type": "number"},
				"w": {"type": "number", "exclusiveMinimum": 0},
				"h": {"type": "number", "exclusiveMinimum": 0}
			}
		},
		"tolerance": {"type": "number", "minimum": 0}
	},
	"allOf": [
		{"if": {"properties": {"type": {"const": "regex"}}}, "then": {"required": ["pattern"]}},
		{"if": {"properties": {"type": {"const": "keyword"}}}, "then": {"required": ["anchor"]}},
		{"if": {"properties": {"type": {"const": "position"}}}, "then": {"required": ["rect"]}}
	]
}`

var compiledRuleSchema = jsonschema.MustCompileString("rule_config.schema.json", ruleConfigSchema)

// RegexRule extracts the value of a capture group from the first
// matching line.
type RegexRule struct {
	Pattern string
	Group   int
	re      *regexp.Regexp
}

// KeywordRule locates an anchor substring (case-insensitive) and
// captures text from a window relative to it.
type KeywordRule struct {
	Anchor string
	Mode   KeywordMode
	Lines  int
}

// PositionRule captures the lines overlapping a target rectangle.
type PositionRule struct {
	Rect      Rect
	Tolerance float64
}

// Rule is the closed tagged variant of an extraction rule. Exactly one
// of Regex, Keyword, Position is non-nil, matching Type.
type Rule struct {
	Type     domain.RuleType
	Regex    *RegexRule
	Keyword  *KeywordRule
	Position *PositionRule
}

// FieldSpec is a compiled, extraction-ready field definition.
type FieldSpec struct {
	Name     string
	Required bool
	Rule     *Rule
}

type ruleConfig struct {
	Type      string  `json:"type"`
	Pattern   string  `json:"pattern"`
	Group     *int    `json:"group"`
	Anchor    string  `json:"anchor"`
	Mode      string  `json:"mode"`
	Lines     int     `json:"lines"`
	Rect      *Rect   `json:"rect"`
	Tolerance float64 `json:"tolerance"`
}

// ParseRule validates a stored rule configuration against the schema and
// compiles it into a typed Rule. Malformed configurations are rejected
// here with domain.ErrInvalidRuleConfig.
func ParseRule(raw json.RawMessage) (*Rule, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRuleConfig, err)
	}
	if err := compiledRuleSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRuleConfig, err)
	}

	var cfg ruleConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRuleConfig, err)
	}

	switch domain.RuleType(cfg.Type) {
	case domain.RuleTypeRegex:
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern %q: %v", domain.ErrInvalidRuleConfig, cfg.Pattern, err)
		}
		group := 0
		if cfg.Group != nil {
			group = *cfg.Group
		} else if re.NumSubexp() > 0 {
			group = 1
		}
		if group > re.NumSubexp() {
			return nil, fmt.Errorf("%w: pattern %q has no capture group %d", domain.ErrInvalidRuleConfig, cfg.Pattern, group)
		}
		return &Rule{
			Type:  domain.RuleTypeRegex,
			Regex: &RegexRule{Pattern: cfg.Pattern, Group: group, re: re},
		}, nil

	case domain.RuleTypeKeyword:
		mode := KeywordMode(cfg.Mode)
		if mode == "" {
			mode = KeywordModeSameLine
		}
		lines := cfg.Lines
		if lines == 0 {
			lines = 1
		}
		return &Rule{
			Type:    domain.RuleTypeKeyword,
			Keyword: &KeywordRule{Anchor: cfg.Anchor, Mode: mode, Lines: lines},
		}, nil

	case domain.RuleTypePosition:
		return &Rule{
			Type:     domain.RuleTypePosition,
			Position: &PositionRule{Rect: *cfg.Rect, Tolerance: cfg.Tolerance},
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown rule type %q", domain.ErrInvalidRuleConfig, cfg.Type)
}

// CompileFields parses the rule configuration of every field definition,
// producing the extraction-ready spec list in template field order.
func CompileFields(defs []domain.FieldDefinition) ([]FieldSpec, error) {
	specs := make([]FieldSpec, 0, len(defs))
	for i := range defs {
		rule, err := ParseRule(defs[i].RuleConfig)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", defs[i].Name, err)
		}
		specs = append(specs, FieldSpec{
			Name:     defs[i].Name,
			Required: defs[i].Required,
			Rule:     rule,
		})
	}
	return specs, nil
}
