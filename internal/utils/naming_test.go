package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"x":                         "x",
		"X":                         "x",
		"ID":                        "id",
		"Name":                      "name",
		"userRestrictions":          "user_restrictions",
		"ThisIsATest":               "this_is_a_test",
		"PFAndESI":                  "pf_and_esi",
		"EmployeeID":                "employee_id",
		"AuthorID":                  "author_id",
		"SKU_ID":                    "sku_id",
		"FieldX":                    "field_x",
		"HTTPServerHandlerForURLID": "http_server_handler_for_url_id",
		"UUID":                      "uuid",
		"HTTPURL":                   "http_url",
		"SHA256Hash":                "sha256_hash",
		"SHA256HASH":                "sha256_hash",
		"APIKey":                    "api_key",
		"CreatedAt":                 "created_at",
		"HappyBodyIDs":              "happy_body_ids",
		"ÜberName":                  "über_name",
		"already_snake":             "already_snake",
	}

	for input, expected := range tests {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, ToSnakeCase(input))
		})
	}
}
