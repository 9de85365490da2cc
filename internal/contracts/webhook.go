// Package contracts validates inbound provider payloads against their JSON
// schemas before they reach the tracker.
package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const providerEventSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"title": "ProviderWebhookEvent",
	"type": "object",
	"required": ["event"],
	"properties": {
		"event": { "type": "string", "minLength": 1 },
		"email": { "type": "string" },
		"message-id": { "type": "string" },
		"tags": { "type": "array", "items": { "type": "string" } },
		"link": { "type": "string" },
		"reason": { "type": "string" },
		"ip": { "type": "string" },
		"user-agent": { "type": "string" },
		"from": { "type": "string" },
		"subject": { "type": "string" },
		"text": { "type": "string" },
		"date": { "type": "string" }
	}
}`

var providerEvent = jsonschema.MustCompileString("provider_event.json", providerEventSchema)

// ValidateProviderEvent checks one raw webhook event against the provider
// event schema.
func ValidateProviderEvent(raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("event is not valid JSON: %w", err)
	}
	if err := providerEvent.Validate(v); err != nil {
		return fmt.Errorf("event failed schema validation: %w", err)
	}
	return nil
}
