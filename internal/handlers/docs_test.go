package handlers_test

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-portal-backend/docs"
)

var routeParam = regexp.MustCompile(`:(\w+)`)

func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	env := newTestEnv(t)

	var doc struct {
		Paths       map[string]map[string]json.RawMessage `json:"paths"`
		Definitions map[string]json.RawMessage            `json:"definitions"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	documented := 0
	for _, r := range env.router.Routes() {
		p := r.Path
		switch {
		case strings.HasPrefix(p, "/api/v1/"):
			p = strings.TrimPrefix(p, "/api/v1")
		case p == "/health":
		default:
			continue
		}
		p = routeParam.ReplaceAllString(p, "{$1}")

		ops, ok := doc.Paths[p]
		if !assert.True(t, ok, "%s is not documented", p) {
			continue
		}
		_, ok = ops[strings.ToLower(r.Method)]
		assert.True(t, ok, "%s %s is not documented", r.Method, p)
		documented++
	}
	assert.Equal(t, 17, documented)

	refs := regexp.MustCompile(`#/definitions/([\w.]+)`).FindAllStringSubmatch(docs.SwaggerInfo.ReadDoc(), -1)
	require.NotEmpty(t, refs)
	for _, m := range refs {
		assert.Contains(t, doc.Definitions, m[1])
	}
}
