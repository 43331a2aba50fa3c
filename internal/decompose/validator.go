package decompose

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/ShayCichocki/wkagent/pkg/models"
)

// subTaskSchema is the shape every plan element must have.
const subTaskSchema = `{
	"type": "object",
	"required": ["id", "description"],
	"properties": {
		"id": {"type": ["string", "integer"]},
		"description": {"type": "string", "minLength": 1},
		"priority": {"type": ["integer", "string"]},
		"estimatedComplexity": {"type": "string"}
	}
}`

// Validator filters raw plan elements down to well-formed sub-tasks.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the sub-task schema.
func NewValidator() (*Validator, error) {
	schema, err := jsonschema.NewCompiler().Compile([]byte(subTaskSchema))
	if err != nil {
		return nil, fmt.Errorf("compile sub-task schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Rejection records why an element was dropped.
type Rejection struct {
	Index  int
	Reason string
}

// Filter keeps the elements of items that satisfy the schema, converted to
// sub-tasks. Missing priorities take the element position; duplicate ids
// get a numeric suffix. The result is ordered by priority, stable.
func (v *Validator) Filter(items []any, fallbackComplexity models.Complexity) ([]models.SubTask, []Rejection) {
	var (
		tasks    []models.SubTask
		rejected []Rejection
		seen     = map[string]int{}
	)
	for i, item := range items {
		res := v.schema.Validate(item)
		if !res.Valid {
			reasons := make([]string, 0, len(res.Errors))
			for _, e := range res.Errors {
				reasons = append(reasons, e.Error())
			}
			rejected = append(rejected, Rejection{Index: i, Reason: strings.Join(reasons, "; ")})
			continue
		}

		obj, _ := item.(map[string]any)
		doc := gjson.Parse(mustJSON(obj))
		st := models.SubTask{
			ID:                  strings.TrimSpace(doc.Get("id").String()),
			Description:         strings.TrimSpace(doc.Get("description").String()),
			Priority:            int(doc.Get("priority").Int()),
			EstimatedComplexity: fallbackComplexity,
		}
		if st.ID == "" || st.Description == "" {
			rejected = append(rejected, Rejection{Index: i, Reason: "blank id or description"})
			continue
		}
		if c := doc.Get("estimatedComplexity").String(); c != "" {
			st.EstimatedComplexity = models.ParseComplexity(c)
		}
		if st.Priority <= 0 {
			st.Priority = len(tasks) + 1
		}
		if n := seen[st.ID]; n > 0 {
			seen[st.ID] = n + 1
			st.ID = fmt.Sprintf("%s_%d", st.ID, n+1)
		} else {
			seen[st.ID] = 1
		}
		tasks = append(tasks, st)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Priority < tasks[j].Priority })
	return tasks, rejected
}
