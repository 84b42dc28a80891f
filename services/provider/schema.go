package provider

import (
	"fmt"
	"strings"

	"github.com/steamtrust/backend/types"
	"github.com/xeipuuv/gojsonschema"
)

const cardlinkWebhookSchema = `{
	"type": "object",
	"required": ["InvId", "OutSum", "CurrencyIn", "Status", "SignatureValue"],
	"properties": {
		"InvId": {"type": ["string", "number"], "minLength": 1},
		"OutSum": {"type": ["string", "number"], "minLength": 1},
		"CurrencyIn": {"type": "string", "minLength": 1},
		"Status": {"type": "string", "minLength": 1},
		"SignatureValue": {"type": "string", "minLength": 1},
		"Commission": {"type": ["string", "number"]},
		"TrsId": {"type": ["string", "number"]}
	}
}`

const cryptopayWebhookSchema = `{
	"type": "object",
	"required": ["orderId"],
	"properties": {
		"orderId": {"type": ["string", "number"], "minLength": 1}
	}
}`

const cryptopayTransactionSchema = `{
	"type": "object",
	"required": ["orderId", "status", "amount", "token"],
	"properties": {
		"orderId": {"type": ["string", "number"]},
		"status": {"type": "string"},
		"amount": {"type": ["string", "number"]},
		"token": {"type": "string", "minLength": 1}
	}
}`

var (
	cardlinkSchema    = mustSchema(cardlinkWebhookSchema)
	cryptopaySchema   = mustSchema(cryptopayWebhookSchema)
	transactionSchema = mustSchema(cryptopayTransactionSchema)
)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("invalid webhook schema: %v", err))
	}
	return schema
}

// validateShape checks payload against schema and returns a
// WEBHOOK_DATA_INVALID error listing every violation
func validateShape(schema *gojsonschema.Schema, payload types.WebhookPayload) error {
	if payload == nil {
		return types.ErrWebhookDataInvalid("empty payload")
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]interface{}(payload)))
	if err != nil {
		return types.ErrWebhookDataInvalid(fmt.Sprintf("schema validation: %v", err))
	}
	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			violations = append(violations, e.String())
		}
		return types.ErrWebhookDataInvalid(strings.Join(violations, "; "))
	}
	return nil
}
