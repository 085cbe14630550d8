package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/churn-cli/internal/gateway"
)

// Response schemas check shape only. Field-level coercion is left to the
// decoders so that numeric strings and alternate key names still pass.
var responseSchemas = map[gateway.Endpoint]string{
	gateway.Ingest: `{
		"type": "object",
		"required": ["data"],
		"properties": {
			"message": {"type": "string"},
			"data": {
				"type": "object",
				"required": ["totalRows", "totalColumns"],
				"properties": {
					"totalRows": {"type": "integer", "minimum": 0},
					"totalColumns": {"type": "integer", "minimum": 0}
				}
			},
			"customers": {"type": "array", "items": {"type": ["string", "number"]}}
		}
	}`,
	gateway.Aggregate: `{
		"type": "object",
		"properties": {"message": {"type": "string"}}
	}`,
	gateway.Trend: `{
		"type": "array",
		"items": {"type": "object"}
	}`,
	gateway.AtRisk: `{
		"anyOf": [
			{"type": "array", "items": {"type": "object"}},
			{
				"type": "object",
				"required": ["rows"],
				"properties": {
					"columns": {"type": "array", "items": {"type": "string"}},
					"rows": {"type": "array", "items": {"type": "object"}}
				}
			}
		]
	}`,
	gateway.CustomerAnalysis: `{
		"type": "object",
		"properties": {
			"customer_id": {"type": ["string", "number"]},
			"monthly_data": {"type": "array", "items": {"type": "object"}},
			"quarterly_data": {"type": "array", "items": {"type": "object"}},
			"risk_factors": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	gateway.TrainAndPredict: `{
		"type": "object",
		"required": ["evaluation"],
		"properties": {
			"evaluation": {"type": "object"},
			"predictions": {"type": "array", "items": {"type": "object"}}
		}
	}`,
}

var (
	schemaOnce     sync.Once
	compiled       map[gateway.Endpoint]*jsonschema.Schema
	errSchemaSetup error
)

func compileSchemas() (map[gateway.Endpoint]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		out := make(map[gateway.Endpoint]*jsonschema.Schema, len(responseSchemas))
		for ep, src := range responseSchemas {
			url := fmt.Sprintf("https://churn-cli.local/schemas/%s.schema.json", ep)
			if err := c.AddResource(url, strings.NewReader(src)); err != nil {
				errSchemaSetup = eris.Wrapf(err, "workflow: load schema %s", ep)
				return
			}
			s, err := c.Compile(url)
			if err != nil {
				errSchemaSetup = eris.Wrapf(err, "workflow: compile schema %s", ep)
				return
			}
			out[ep] = s
		}
		compiled = out
	})
	return compiled, errSchemaSetup
}

// validateResponse checks raw against the endpoint's schema.
func validateResponse(ep gateway.Endpoint, raw []byte) error {
	schemas, err := compileSchemas()
	if err != nil {
		return err
	}
	s, ok := schemas[ep]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return eris.Wrapf(ErrInvalidResponse, "%s: %v", ep, err)
	}
	if err := s.Validate(doc); err != nil {
		return eris.Wrapf(ErrInvalidResponse, "%s: %v", ep, err)
	}
	return nil
}
