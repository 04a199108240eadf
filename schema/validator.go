// Package payloadschema validates job posting ingestion payloads
// against the embedded JSON Schema before any of the fields reach the
// resolver.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed posting_v1.schema.json
var postingSchemaJSON string

type Company struct {
	Name   string  `json:"name"`
	Domain *string `json:"domain,omitempty"`
	Sector *string `json:"sector,omitempty"`
}

type Location struct {
	City    *string `json:"city,omitempty"`
	County  *string `json:"county,omitempty"`
	Country *string `json:"country,omitempty"`
	Remote  *bool   `json:"remote,omitempty"`
}

type Salary struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Currency *string  `json:"currency,omitempty"`
}

// Posting is one validated ingestion payload.
type Posting struct {
	PayloadVersion string    `json:"payload_version"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Description    *string   `json:"description,omitempty"`
	Requirements   *string   `json:"requirements,omitempty"`
	Seniority      *string   `json:"seniority,omitempty"`
	RoleFamily     *string   `json:"role_family,omitempty"`
	PostedAt       *string   `json:"posted_at,omitempty"`
	Company        *Company  `json:"company,omitempty"`
	Location       *Location `json:"location,omitempty"`
	Salary         *Salary   `json:"salary,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidatePostingPayload checks one raw payload against the schema and
// the semantic rules, returning the decoded posting.
func ValidatePostingPayload(payload json.RawMessage) (*Posting, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var posting Posting
	if err := json.Unmarshal(normalized, &posting); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&posting); err != nil {
		return nil, err
	}

	return &posting, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("posting_v1.schema.json", strings.NewReader(postingSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("posting_v1.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(posting *Posting) error {
	if posting == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(posting.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(posting.Source) == "" {
		return fmt.Errorf("source must not be empty")
	}
	if strings.TrimSpace(posting.URL) == "" {
		return fmt.Errorf("url must not be empty")
	}
	if strings.TrimSpace(posting.Title) == "" {
		return fmt.Errorf("title must not be empty")
	}

	if posting.PostedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*posting.PostedAt)); err != nil {
			return fmt.Errorf("posted_at must be RFC3339: %w", err)
		}
	}
	if posting.Company != nil && strings.TrimSpace(posting.Company.Name) == "" {
		return fmt.Errorf("company.name must not be empty")
	}
	if posting.Salary != nil {
		if posting.Salary.Min != nil && posting.Salary.Max != nil && *posting.Salary.Min > *posting.Salary.Max {
			return fmt.Errorf("salary.min must not exceed salary.max")
		}
	}

	return nil
}
