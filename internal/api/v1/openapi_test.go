package apiv1

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadDoc(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(filepath.Join("..", "..", "..", "public", "docs", "v1", "openapi.yml"))
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestOpenAPIDocMatchesRoutes(t *testing.T) {
	doc := loadDoc(t)

	documented := map[string]bool{}
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			documented[method+" "+path] = true
		}
	}

	app := fiber.New()
	RegisterHandlers(app.Group(""), NewAPIServer(), Middlewares{})

	registered := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead || strings.HasPrefix(r.Path, "/api") {
			continue
		}
		registered[r.Method+" "+r.Path] = true
	}

	assert.Equal(t, documented, registered)
}

func TestOpenAPIDocErrorShape(t *testing.T) {
	doc := loadDoc(t)

	schema := doc.Components.Schemas["Error"].Value
	require.NotNil(t, schema)
	assert.ElementsMatch(t, []string{"error", "message"}, schema.Required)

	session := doc.Components.Schemas["PaymentSession"].Value
	assert.Contains(t, session.Required, "form_fields")
	assert.Contains(t, session.Required, "transaction_uuid")
}
