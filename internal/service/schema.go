package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todo-list/internal/model"
)

// ErrDuplicateID rejects a payload in which two tasks share an id.
var ErrDuplicateID = errors.New("duplicate task id")

const todosSchemaURL = "https://todo-list.local/todos.schema.json"

// todosSchema describes the persisted task array.
const todosSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "text", "completed", "createdAt"],
    "properties": {
      "id": {"type": ["string", "number"]},
      "text": {"type": "string", "pattern": "\\S"},
      "completed": {"type": "boolean"},
      "createdAt": {"type": "string", "format": "date-time"},
      "updatedAt": {"type": "string", "format": "date-time"},
      "priority": {"enum": ["low", "medium", "high"]},
      "category": {"type": "string"},
      "dueDate": {"type": "string", "minLength": 10}
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func todosValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(todosSchemaURL, strings.NewReader(todosSchema)); err != nil {
			compileErr = fmt.Errorf("add todos schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile(todosSchemaURL)
	})
	return compiledSchema, compileErr
}

// ValidateTasks checks a persisted payload against the task array schema.
func ValidateTasks(data []byte) error {
	schema, err := todosValidator()
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parse tasks: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("validate tasks: %w", err)
	}
	return nil
}

// DecodeTasks validates and decodes a persisted payload.
// Numeric ids from older payloads are kept as their decimal text.
// Ids must be unique after that conversion.
func DecodeTasks(data []byte) ([]model.Task, error) {
	if err := ValidateTasks(data); err != nil {
		return nil, err
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	for _, item := range raw {
		if id, ok := item["id"]; ok && len(id) > 0 && id[0] != '"' {
			quoted, _ := json.Marshal(string(id))
			item["id"] = quoted
		}
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize tasks: %w", err)
	}

	tasks := []model.Task{}
	if err := json.Unmarshal(normalized, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	seen := make(map[string]struct{}, len(tasks))
	for i := range tasks {
		if _, dup := seen[tasks[i].ID]; dup {
			return nil, fmt.Errorf("decode tasks: %w: %q", ErrDuplicateID, tasks[i].ID)
		}
		seen[tasks[i].ID] = struct{}{}
		if tasks[i].Priority == "" {
			tasks[i].Priority = model.PriorityMedium
		}
	}
	return tasks, nil
}
