package problem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// mandatoryConfig lists the fields problem.yaml must provide (possibly
// seeded from the statement).
var mandatoryConfig = []string{"name"}

// defaultConfig returns a fresh copy of the optional-field skeleton the user
// file is overlaid onto.
func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"uuid":       "",
		"type":       "pass-fail",
		"author":     "",
		"source":     "",
		"source_url": "",
		"license":    "unknown",
		"rights_owner": "",
		"keywords":   "",
		"limits": map[string]interface{}{
			"time_multiplier":    5,
			"time_safety_margin": 2,
			"memory":             1024,
			"output":             8,
			"compilation_time":   60,
			"validation_time":    60,
			"validation_memory":  1024,
			"validation_output":  8,
		},
		"validation":      "default",
		"validator_flags": "",
		"grading": map[string]interface{}{
			"on_reject":    "first_error",
			"accept_score": 1.0,
			"reject_score": 0.0,
			"objective":    "max",
			"range":        "-inf +inf",
		},
		"libraries": "",
		"languages": "",
	}
}

var validLicenses = []string{"unknown", "public domain", "cc0", "cc by", "cc by-sa", "educational", "permission"}

// ProblemConfig is the merged view of problem.yaml: user data overlaid onto
// the default skeleton, normalized, with the derived validation-type /
// validation-params split. The pre-derivation data is kept for unknown-field
// diagnostics.
type ProblemConfig struct {
	aspect
	problem    *Problem
	configfile string
	data       map[string]interface{}
	origdata   map[string]interface{}
}

func newProblemConfig(p *Problem) *ProblemConfig {
	c := &ProblemConfig{
		aspect:     newAspect(p.rep, "problem configuration"),
		problem:    p,
		configfile: filepath.Join(p.probdir, "problem.yaml"),
		data:       map[string]interface{}{},
	}
	c.debug("  Loading problem config")

	if raw, err := os.ReadFile(c.configfile); err == nil {
		if err := yaml.Unmarshal(raw, &c.data); err != nil {
			c.error("%v", err)
			c.data = map[string]interface{}{}
		}
		// An empty yaml document unmarshals to nothing at all.
		if c.data == nil {
			c.data = map[string]interface{}{}
		}
	}

	// Config items extracted from the problem statement, e.g. name.
	for field, value := range p.statement.configSeed() {
		c.data[field] = value
	}

	// Populate rights_owner unless the license is public domain.
	if _, ok := c.data["rights_owner"]; !ok && strings.ToLower(asString(c.data["license"])) != "public domain" {
		if author, ok := c.data["author"]; ok {
			c.data["rights_owner"] = author
		} else if source, ok := c.data["source"]; ok {
			c.data["rights_owner"] = source
		}
	}

	if lic, ok := c.data["license"].(string); ok {
		c.data["license"] = strings.ToLower(lic)
	}

	// A plain-string name means the default language.
	if name, ok := c.data["name"]; ok {
		if _, isMap := name.(map[string]interface{}); !isMap {
			c.data["name"] = map[string]interface{}{"": name}
		}
	}

	for field, def := range defaultConfig() {
		if _, ok := c.data[field]; !ok {
			c.data[field] = def
			continue
		}
		if defMap, ok := def.(map[string]interface{}); ok {
			userMap, ok := c.data[field].(map[string]interface{})
			if !ok {
				c.error("Field '%s' must be a mapping", field)
				c.data[field] = defMap
				continue
			}
			merged := copyConfigMap(defMap)
			for k, v := range userMap {
				merged[k] = v
			}
			c.data[field] = merged
		}
	}

	c.origdata = copyConfigMap(c.data)

	val := strings.Fields(asString(c.data["validation"]))
	if len(val) > 0 {
		c.data["validation-type"] = val[0]
		c.data["validation-params"] = val[1:]
	} else {
		c.data["validation-type"] = ""
		c.data["validation-params"] = []string{}
	}

	if asString(c.data["type"]) == "pass-fail" {
		c.Grading()["accept_score"] = nil
		c.Grading()["reject_score"] = nil
	}

	c.Grading()["custom_scoring"] = false
	for _, param := range c.ValidationParams() {
		if param == "score" {
			c.Grading()["custom_scoring"] = true
		}
	}

	return c
}

func copyConfigMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			out[k] = copyConfigMap(nested)
		} else {
			out[k] = v
		}
	}
	return out
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Get returns one top-level config value.
func (c *ProblemConfig) Get(key string) interface{} { return c.data[key] }

// Data returns the full merged mapping.
func (c *ProblemConfig) Data() map[string]interface{} { return c.data }

// Type returns the problem type, pass-fail or scoring.
func (c *ProblemConfig) Type() string { return asString(c.data["type"]) }

// Limits returns the mutable limits mapping; the submissions check writes
// the calibrated time limit back into it.
func (c *ProblemConfig) Limits() map[string]interface{} {
	return c.data["limits"].(map[string]interface{})
}

// LimitFloat reads one limit as a float regardless of its yaml number type.
func (c *ProblemConfig) LimitFloat(name string) float64 {
	return toFloat(c.Limits()[name])
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		return 0
	}
}

// Grading returns the grading sub-mapping.
func (c *ProblemConfig) Grading() map[string]interface{} {
	return c.data["grading"].(map[string]interface{})
}

// AcceptScore returns the configured accept score, nil for pass-fail problems.
func (c *ProblemConfig) AcceptScore() *float64 { return c.gradingScore("accept_score") }

// RejectScore returns the configured reject score, nil for pass-fail problems.
func (c *ProblemConfig) RejectScore() *float64 { return c.gradingScore("reject_score") }

func (c *ProblemConfig) gradingScore(key string) *float64 {
	v := c.Grading()[key]
	if v == nil {
		return nil
	}
	return floatPtr(toFloat(v))
}

// CustomScoring reports whether validation-params included "score".
func (c *ProblemConfig) CustomScoring() bool {
	v, _ := c.Grading()["custom_scoring"].(bool)
	return v
}

// OnReject returns the configured rejection policy.
func (c *ProblemConfig) OnReject() string { return asString(c.Grading()["on_reject"]) }

// ValidationType returns the first word of the validation setting.
func (c *ProblemConfig) ValidationType() string { return asString(c.data["validation-type"]) }

// ValidationParams returns the remaining words of the validation setting.
func (c *ProblemConfig) ValidationParams() []string {
	params, _ := c.data["validation-params"].([]string)
	return params
}

// HasValidationParam reports whether the given validation parameter was set.
func (c *ProblemConfig) HasValidationParam(param string) bool {
	for _, p := range c.ValidationParams() {
		if p == param {
			return true
		}
	}
	return false
}

// ValidatorFlags returns the global output validator flags, split.
func (c *ProblemConfig) ValidatorFlags() []string {
	return strings.Fields(asString(c.data["validator_flags"]))
}

func (c *ProblemConfig) check() bool {
	if done, res := c.beginCheck(); done {
		return res
	}

	if _, err := os.Stat(c.configfile); err != nil {
		c.error("No config file %s found", c.configfile)
	}

	for _, field := range mandatoryConfig {
		if _, ok := c.data[field]; !ok {
			c.error("Mandatory field '%s' not provided", field)
		}
	}

	for _, field := range sortedKeys(c.origdata) {
		if c.origdata[field] == nil {
			c.error("Field '%s' provided in problem.yaml but is empty", field)
		}
		if _, known := defaultConfig()[field]; !known && !isMandatory(field) {
			c.warning("Unknown field '%s' provided in problem.yaml", field)
		}
	}

	if t := c.Type(); t != "pass-fail" && t != "scoring" {
		c.error("Invalid value '%s' for type", t)
	}

	license := asString(c.data["license"])
	rightsOwner := strings.TrimSpace(asString(c.data["rights_owner"]))
	if license == "public domain" {
		if rightsOwner != "" {
			c.error("Can not have a rights_owner for a problem in public domain")
		}
	} else if license != "unknown" {
		if rightsOwner == "" {
			c.error("No author, source or rights_owner provided")
		}
	}

	if strings.TrimSpace(asString(c.data["source_url"])) != "" &&
		strings.TrimSpace(asString(c.data["source"])) == "" {
		c.error("Can not provide source_url without also providing source")
	}

	if !isValidLicense(license) {
		c.error("Invalid value for license: %s.\n  Valid licenses are %v", license, validLicenses)
	} else if license == "unknown" {
		c.warning("License is 'unknown'")
	}

	onReject := c.OnReject()
	if onReject != "first_error" && onReject != "worst_error" && onReject != "grade" {
		c.error("Invalid value '%s' for on_reject policy", onReject)
	}

	if c.Type() == "pass-fail" && onReject == "grade" {
		c.error("Invalid on_reject policy '%s' for problem type '%s'", onReject, c.Type())
	}

	if vt := c.ValidationType(); vt != "default" && vt != "custom" {
		c.error("Invalid value '%s' for validation, first word must be 'default' or 'custom'", asString(c.data["validation"]))
	}

	if c.ValidationType() == "default" && len(c.ValidationParams()) > 0 {
		c.error("Invalid value '%s' for validation", asString(c.data["validation"]))
	}

	if c.ValidationType() == "custom" {
		for _, param := range c.ValidationParams() {
			if param != "score" && param != "interactive" {
				c.error("Invalid parameter '%s' for custom validation", param)
			}
		}
	}

	// Some things not yet implemented
	if onReject == "worst_error" {
		c.error("'on_reject: worst_error' not yet supported")
	}
	if asString(c.data["libraries"]) != "" {
		c.error("Libraries not yet supported")
	}
	if asString(c.data["languages"]) != "" {
		c.error("Languages not yet supported")
	}

	return c.checkResult()
}

func isMandatory(field string) bool {
	for _, m := range mandatoryConfig {
		if m == field {
			return true
		}
	}
	return false
}

func isValidLicense(license string) bool {
	for _, l := range validLicenses {
		if l == license {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
