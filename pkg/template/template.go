// Package template provides templating for dialogue text and node configuration.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/storyflow/pkg/models"
)

// ContextData exposes the run to templates: .vars (also .variables), .run and .env.
func ContextData(ectx *models.ExecutionContext) map[string]any {
	vars := map[string]any{}
	run := map[string]any{}

	if ectx != nil {
		if ectx.Variables != nil {
			vars = ectx.Variables.Snapshot()
		}

		run["id"] = ectx.RunID
		if ectx.Graph != nil {
			run["graph_id"] = ectx.Graph.ID()
		}
	}

	return map[string]any{
		"vars":      vars,
		"variables": vars,
		"run":       run,
		"env":       getEnvVars(),
	}
}

// RenderWithContext renders input against the run and coerces the result
// like Render does.
func RenderWithContext(input string, ectx *models.ExecutionContext) (any, error) {
	return Render(input, ContextData(ectx))
}

// TextWithContext renders input against the run and keeps the result as text.
func TextWithContext(input string, ectx *models.ExecutionContext) (string, error) {
	if !NeedsTemplating(input) {
		return input, nil
	}

	return RenderText(input, ContextData(ectx))
}

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// RenderText executes templateStr with data and returns the raw output.
func RenderText(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("storyflow").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(max int) int {
				if max <= 0 {
					return 0
				}
				num := make([]byte, 1)
				_, err := rand.Read(num)
				if err != nil {
					return 0
				}

				return int(num[0]) % max
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}

// Render executes templateStr with data and parses the output as JSON,
// a number or a boolean when it looks like one.
func Render(templateStr string, data any) (any, error) {
	rendered, err := RenderText(templateStr, data)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(rendered)
	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}

		return jsonResult, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// Truthy converts a rendered value to a boolean.
func Truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != "" && v != "<no value>"
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0.0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}

	return envMap
}
