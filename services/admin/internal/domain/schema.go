// Package domain describes the reference data and promotions the admin
// console manages on the commerce backend.
package domain

import (
	"regexp"
	"slices"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/nongtiensonpro/yellowcat/pkg/validator"
)

// vnPhone matches Vietnamese mobile numbers in local or +84 form.
var vnPhone = regexp.MustCompile(`^(0|\+84)(3|5|7|8|9)[0-9]{8}$`)

func init() {
	if err := validator.Register("vnphone", func(fl playground.FieldLevel) bool {
		return vnPhone.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Kind names a reference-data collection, e.g. "colors".
type Kind string

const (
	KindCategories      Kind = "categories"
	KindColors          Kind = "colors"
	KindSizes           Kind = "sizes"
	KindTargetAudiences Kind = "target-audiences"
	KindAddresses       Kind = "addresses"
)

// Field is one editable attribute of a reference-data record.
type Field struct {
	Name string
	// Rule is a validator tag string such as "required,max=255".
	Rule string
}

// Schema parameterizes the generic reference-data manager.
type Schema struct {
	Kind  Kind
	Label string
	// BasePath is the backend collection path.
	BasePath string
	Fields   []Field
	// SearchParam is the backend query parameter the search box maps to.
	SearchParam string
}

// Record is a reference-data entity as the backend returns it.
type Record map[string]any

var schemas = map[Kind]Schema{
	KindCategories: {
		Kind:     KindCategories,
		Label:    "category",
		BasePath: "/api/categories",
		Fields: []Field{
			{Name: "name", Rule: "required,max=255"},
			{Name: "description", Rule: "max=1000"},
		},
		SearchParam: "name",
	},
	KindColors: {
		Kind:     KindColors,
		Label:    "color",
		BasePath: "/api/colors",
		Fields: []Field{
			{Name: "name", Rule: "required,max=50"},
			{Name: "hexCode", Rule: "omitempty,hexcolor"},
			{Name: "description", Rule: "max=255"},
		},
		SearchParam: "name",
	},
	KindSizes: {
		Kind:     KindSizes,
		Label:    "size",
		BasePath: "/api/sizes",
		Fields: []Field{
			{Name: "name", Rule: "required,max=20"},
			{Name: "description", Rule: "max=255"},
		},
		SearchParam: "name",
	},
	KindTargetAudiences: {
		Kind:     KindTargetAudiences,
		Label:    "target audience",
		BasePath: "/api/target-audiences",
		Fields: []Field{
			{Name: "name", Rule: "required,max=100"},
			{Name: "description", Rule: "max=255"},
		},
		SearchParam: "name",
	},
	KindAddresses: {
		Kind:     KindAddresses,
		Label:    "address",
		BasePath: "/api/addresses",
		Fields: []Field{
			{Name: "recipientName", Rule: "required,max=100"},
			{Name: "phoneNumber", Rule: "required,vnphone"},
			{Name: "streetAddress", Rule: "required,max=255"},
			{Name: "wardCommune", Rule: "required,max=100"},
			{Name: "district", Rule: "required,max=100"},
			{Name: "cityProvince", Rule: "required,max=100"},
			{Name: "country", Rule: "max=100"},
		},
		SearchParam: "keyword",
	},
}

// LookupSchema returns the schema registered for kind.
func LookupSchema(kind string) (Schema, bool) {
	s, ok := schemas[Kind(kind)]
	return s, ok
}

// Kinds lists the registered kinds in a stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(schemas))
	for k := range schemas {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Rules maps each field to its validator rule.
func (s Schema) Rules() map[string]string {
	rules := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		rules[f.Name] = f.Rule
	}
	return rules
}

// Sanitize keeps only the schema's fields and trims string values.
func (s Schema) Sanitize(values map[string]any) Record {
	out := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			continue
		}
		if str, isStr := v.(string); isStr {
			v = strings.TrimSpace(str)
		}
		out[f.Name] = v
	}
	return out
}

// Validate checks values against the schema's rules and reports failures
// per field.
func (s Schema) Validate(values Record) error {
	return validator.ValidateMap(values, s.Rules())
}
