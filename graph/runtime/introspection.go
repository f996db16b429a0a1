package runtime

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
)

var errIntrospectionDisabled = errors.New("introspection disabled")

// introspectionField обслуживает Query.__schema и Query.__type.
func (ec *executionContext) introspectionField(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
	switch field.Name {
	case "__schema":
		return resolveField(ctx, ec, "Query", field, false,
			func(ctx context.Context, _ map[string]interface{}) (*introspection.Schema, error) {
				if ec.DisableIntrospection {
					return nil, errIntrospectionDisabled
				}
				return introspection.WrapSchema(ec.schema), nil
			}, ec.marshalSchema)
	case "__type":
		return resolveField(ctx, ec, "Query", field, false,
			func(ctx context.Context, args map[string]interface{}) (*introspection.Type, error) {
				if ec.DisableIntrospection {
					return nil, errIntrospectionDisabled
				}
				def := ec.schema.Types[stringArg(args, "name")]
				if def == nil {
					return nil, nil
				}
				return introspection.WrapTypeFromDef(ec.schema, def), nil
			}, ec.marshalType)
	}
	return unknownField(ctx, "Query", field)
}

func (ec *executionContext) marshalSchema(ctx context.Context, sel ast.SelectionSet, obj *introspection.Schema) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "__Schema", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "types":
			return ec.marshalTypes(ctx, field.Selections, obj.Types())
		case "queryType":
			return ec.marshalType(ctx, field.Selections, obj.QueryType())
		case "mutationType":
			return ec.marshalType(ctx, field.Selections, obj.MutationType())
		case "subscriptionType":
			return ec.marshalType(ctx, field.Selections, obj.SubscriptionType())
		case "directives":
			return marshalList(ctx, obj.Directives(), func(ctx context.Context, d introspection.Directive) graphql.Marshaler {
				return ec.marshalDirective(ctx, field.Selections, &d)
			})
		}
		// description схемы не задается.
		return graphql.Null
	})
}

func (ec *executionContext) marshalTypes(ctx context.Context, sel ast.SelectionSet, types []introspection.Type) graphql.Marshaler {
	return marshalList(ctx, types, func(ctx context.Context, t introspection.Type) graphql.Marshaler {
		return ec.marshalType(ctx, sel, &t)
	})
}

func (ec *executionContext) marshalType(ctx context.Context, sel ast.SelectionSet, obj *introspection.Type) graphql.Marshaler {
	if obj == nil {
		return graphql.Null
	}
	return ec.object(ctx, "__Type", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		args := field.ArgumentMap(ec.Variables)
		includeDeprecated, _ := args["includeDeprecated"].(bool)

		switch field.Name {
		case "kind":
			return graphql.MarshalString(obj.Kind())
		case "name":
			return marshalOptionalString(obj.Name())
		case "description":
			return marshalOptionalString(obj.Description())
		case "fields":
			return marshalList(ctx, obj.Fields(includeDeprecated), func(ctx context.Context, f introspection.Field) graphql.Marshaler {
				return ec.marshalField(ctx, field.Selections, &f)
			})
		case "inputFields":
			return ec.marshalInputValues(ctx, field.Selections, obj.InputFields())
		case "interfaces":
			return ec.marshalTypes(ctx, field.Selections, obj.Interfaces())
		case "possibleTypes":
			return ec.marshalTypes(ctx, field.Selections, obj.PossibleTypes())
		case "enumValues":
			return marshalList(ctx, obj.EnumValues(includeDeprecated), func(ctx context.Context, v introspection.EnumValue) graphql.Marshaler {
				return ec.marshalEnumValue(ctx, field.Selections, &v)
			})
		case "ofType":
			return ec.marshalType(ctx, field.Selections, obj.OfType())
		}
		// specifiedByURL: своих скаляров в схеме нет.
		return graphql.Null
	})
}

func (ec *executionContext) marshalField(ctx context.Context, sel ast.SelectionSet, obj *introspection.Field) graphql.Marshaler {
	return ec.object(ctx, "__Field", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(obj.Name)
		case "description":
			return marshalOptionalString(obj.Description())
		case "args":
			return ec.marshalInputValues(ctx, field.Selections, obj.Args)
		case "type":
			return ec.marshalType(ctx, field.Selections, obj.Type)
		case "isDeprecated":
			return graphql.MarshalBoolean(obj.IsDeprecated())
		case "deprecationReason":
			return marshalOptionalString(obj.DeprecationReason())
		}
		return graphql.Null
	})
}

func (ec *executionContext) marshalInputValues(ctx context.Context, sel ast.SelectionSet, values []introspection.InputValue) graphql.Marshaler {
	return marshalList(ctx, values, func(ctx context.Context, v introspection.InputValue) graphql.Marshaler {
		return ec.object(ctx, "__InputValue", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
			switch field.Name {
			case "name":
				return graphql.MarshalString(v.Name)
			case "description":
				return marshalOptionalString(v.Description())
			case "type":
				return ec.marshalType(ctx, field.Selections, v.Type)
			case "defaultValue":
				return marshalOptionalString(v.DefaultValue)
			}
			return graphql.Null
		})
	})
}

func (ec *executionContext) marshalEnumValue(ctx context.Context, sel ast.SelectionSet, obj *introspection.EnumValue) graphql.Marshaler {
	return ec.object(ctx, "__EnumValue", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(obj.Name)
		case "description":
			return marshalOptionalString(obj.Description())
		case "isDeprecated":
			return graphql.MarshalBoolean(obj.IsDeprecated())
		case "deprecationReason":
			return marshalOptionalString(obj.DeprecationReason())
		}
		return graphql.Null
	})
}

func (ec *executionContext) marshalDirective(ctx context.Context, sel ast.SelectionSet, obj *introspection.Directive) graphql.Marshaler {
	return ec.object(ctx, "__Directive", sel, func(ctx context.Context, field graphql.CollectedField) graphql.Marshaler {
		switch field.Name {
		case "name":
			return graphql.MarshalString(obj.Name)
		case "description":
			return marshalOptionalString(obj.Description())
		case "locations":
			return marshalStrings(obj.Locations)
		case "args":
			return ec.marshalInputValues(ctx, field.Selections, obj.Args)
		case "isRepeatable":
			repeatable := false
			if def := ec.schema.Directives[obj.Name]; def != nil {
				repeatable = def.IsRepeatable
			}
			return graphql.MarshalBoolean(repeatable)
		}
		return graphql.Null
	})
}
