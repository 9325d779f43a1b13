package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const operationSchemaDef = `{
	"type": "object",
	"required": ["active", "direction", "duration"],
	"properties": {
		"time": {"type": "string", "pattern": "^[0-9]{2}:[0-9]{2}$"},
		"active": {"type": "string", "minLength": 1},
		"direction": {"enum": ["call", "put"]},
		"duration": {"type": "integer", "minimum": 1}
	}
}`

var (
	authenticateSchema = jsonschema.MustCompileString("authenticate.json", `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {
			"email": {"type": "string", "minLength": 1},
			"password": {"type": "string", "minLength": 1}
		}
	}`)

	operateSchema = jsonschema.MustCompileString("operate.json", fmt.Sprintf(`{
		"type": "object",
		"required": ["userId", "operation"],
		"properties": {
			"userId": {"type": "string", "minLength": 1},
			"operation": %s
		}
	}`, operationSchemaDef))

	accountTraderSchema = jsonschema.MustCompileString("account-trader.json", fmt.Sprintf(`{
		"type": "object",
		"required": ["trader", "operation"],
		"properties": {
			"trader": {"type": "string", "minLength": 1},
			"operation": %s
		}
	}`, operationSchemaDef))
)

// bindValidated reads the request body, checks it against the schema, and
// decodes it into out. Invalid bodies answer 400 and return false.
func bindValidated(c *gin.Context, schema *jsonschema.Schema, out any) bool {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading body failed"})
		return false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return false
	}
	if err := schema.Validate(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return false
	}
	return true
}
