package llm

import (
	"fmt"

	"google.golang.org/genai"
)

// convertToGenaiSchema converts a JSON schema map into a genai.Schema
// for structured output enforcement.
func convertToGenaiSchema(schema map[string]interface{}) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}

	result := &genai.Schema{}

	if typeVal, ok := schema["type"].(string); ok {
		switch typeVal {
		case "object":
			result.Type = genai.TypeObject
		case "array":
			result.Type = genai.TypeArray
		case "string":
			result.Type = genai.TypeString
		case "number":
			result.Type = genai.TypeNumber
		case "integer":
			result.Type = genai.TypeInteger
		case "boolean":
			result.Type = genai.TypeBoolean
		default:
			return nil, fmt.Errorf("unsupported schema type: %s", typeVal)
		}
	}

	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}

	if enum, ok := schema["enum"].([]interface{}); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				result.Enum = append(result.Enum, s)
			}
		}
	}

	if required, ok := schema["required"].([]interface{}); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	if required, ok := schema["required"].([]string); ok {
		result.Required = append(result.Required, required...)
	}

	if minVal, ok := schema["minimum"].(float64); ok {
		result.Minimum = genai.Ptr(minVal)
	}
	if maxVal, ok := schema["maximum"].(float64); ok {
		result.Maximum = genai.Ptr(maxVal)
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		itemsSchema, err := convertToGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("failed to convert items schema: %w", err)
		}
		result.Items = itemsSchema
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		result.Properties = make(map[string]*genai.Schema)
		for name, propVal := range props {
			propMap, ok := propVal.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("property %s is not a schema object", name)
			}
			propSchema, err := convertToGenaiSchema(propMap)
			if err != nil {
				return nil, fmt.Errorf("failed to convert property %s: %w", name, err)
			}
			result.Properties[name] = propSchema
		}
	}

	return result, nil
}
