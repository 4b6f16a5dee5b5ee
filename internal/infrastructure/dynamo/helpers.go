package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// buildUpdateExpr converts a map of field->value into a DynamoDB SET expression.
// A nil value removes the attribute instead of setting it.
func buildUpdateExpr(updates map[string]interface{}) (expr string, names map[string]string, values map[string]types.AttributeValue, err error) {
	names = make(map[string]string)
	values = make(map[string]types.AttributeValue)
	var set, remove string
	i := 0
	for k, v := range updates {
		nameKey := fmt.Sprintf("#f%d", i)
		names[nameKey] = k
		if v == nil {
			if remove != "" {
				remove += ", "
			}
			remove += nameKey
			i++
			continue
		}
		valueKey := fmt.Sprintf(":v%d", i)
		av, mErr := attributevalue.Marshal(v)
		if mErr != nil {
			return "", nil, nil, fmt.Errorf("marshal field %s: %w", k, mErr)
		}
		values[valueKey] = av
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = %s", nameKey, valueKey)
		i++
	}
	if i == 0 {
		return "", nil, nil, fmt.Errorf("no fields to update")
	}
	if set != "" {
		expr = "SET " + set
	}
	if remove != "" {
		if expr != "" {
			expr += " "
		}
		expr += "REMOVE " + remove
	}
	if len(values) == 0 {
		values = nil
	}
	return expr, names, values, nil
}
