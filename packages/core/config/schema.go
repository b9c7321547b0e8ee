package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Schema is the JSON schema every rc document must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "settings": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max-workers": {"type": "integer", "minimum": 1},
        "max-sub-folders": {"type": "integer", "minimum": 1},
        "no-concurrency": {"type": "boolean"},
        "stop-on-fail": {"type": "boolean"},
        "rate-limit": {"type": "number", "minimum": 0},
        "seed": {"type": "integer"},
        "log-dir": {"type": "string"},
        "last-failed-file": {"type": "string"},
        "history-db": {"type": "string"},
        "metrics-file": {"type": "string"},
        "output": {"enum": ["console", "json", "junit", "tap", "html"]},
        "no-color": {"type": "boolean"}
      }
    },
    "suite-alias": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "string", "minLength": 1}
    },
    "suite-disabled": {
      "type": ["object", "null"],
      "additionalProperties": {"type": "string"}
    },
    "hooks": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "pre-run": {"type": ["array", "null"], "items": {"type": "string"}},
        "post-run": {"type": ["array", "null"], "items": {"type": "string"}}
      }
    },
    "notify": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "on": {"enum": ["always", "failure", "success", "recovery"]},
        "slack": {"type": "string"},
        "slack-channel": {"type": "string"},
        "teams": {"type": "string"}
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// Validate checks a YAML or JSON rc document against Schema. An empty
// document is valid.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return nil
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: schema validation error: %v", ErrInvalid, err)
	}
	if result.Valid() {
		return nil
	}

	var errs []string
	for _, desc := range result.Errors() {
		errs = append(errs, desc.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
}
