// Package docs registers the Swagger description of the marketplace API.
// Regenerate with: swag init -g cmd/api/main.go -d ./,./pkg/api
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/producers": {
            "get": {
                "produces": ["application/json"],
                "summary": "List producers",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}}}
            },
            "post": {
                "produces": ["application/json"],
                "summary": "Register producer",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/api.producerResponse"}}}
            }
        },
        "/producers/{id}/products": {
            "get": {
                "produces": ["application/json"],
                "summary": "Producer stock",
                "parameters": [{"type": "string", "description": "Producer ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/product.Product"}}}}
            },
            "post": {
                "description": "Returns 429 when the producer's queue is full; retry after a backoff.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Publish product",
                "parameters": [
                    {"type": "string", "description": "Producer ID", "name": "id", "in": "path", "required": true},
                    {"description": "Product", "name": "product", "in": "body", "required": true, "schema": {"$ref": "#/definitions/product.Product"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.publishResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/api.publishResponse"}}
                }
            }
        },
        "/login": {
            "post": {
                "description": "Creates a new cart and sets the session cookie",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Login",
                "parameters": [{"description": "Consumer", "name": "creds", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.loginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.cartResponse"}}}
            }
        },
        "/cart": {
            "get": {
                "produces": ["application/json"],
                "summary": "View cart",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/api.cartResponse"}}}
            }
        },
        "/cart/items": {
            "post": {
                "description": "Returns 409 when no producer currently has the product; retry later.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Add to cart",
                "parameters": [{"description": "Product", "name": "product", "in": "body", "required": true, "schema": {"$ref": "#/definitions/product.Product"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.reserveResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.reserveResponse"}}
                }
            },
            "delete": {
                "consumes": ["application/json"],
                "summary": "Remove from cart",
                "parameters": [{"description": "Product", "name": "product", "in": "body", "required": true, "schema": {"$ref": "#/definitions/product.Product"}}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/cart/order": {
            "post": {
                "produces": ["application/json"],
                "summary": "Place order",
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/cart/logout": {
            "post": {
                "description": "Returns the cart's reserved units to their producers",
                "summary": "Logout",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/orders": {
            "get": {
                "produces": ["application/json"],
                "summary": "List orders",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}}}}
            }
        },
        "/orders/{id}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get order",
                "parameters": [{"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            },
            "delete": {
                "summary": "Delete order",
                "parameters": [{"type": "string", "description": "Order ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.cartResponse": {
            "type": "object",
            "properties": {
                "cart_id": {"type": "integer"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/order.Line"}}
            }
        },
        "api.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "api.loginRequest": {"type": "object", "properties": {"consumer": {"type": "string"}}},
        "api.producerResponse": {"type": "object", "properties": {"id": {"type": "string"}}},
        "api.publishResponse": {"type": "object", "properties": {"accepted": {"type": "boolean"}}},
        "api.reserveResponse": {"type": "object", "properties": {"reserved": {"type": "boolean"}}},
        "order.Line": {
            "type": "object",
            "properties": {
                "product": {"$ref": "#/definitions/product.Product"},
                "quantity": {"type": "integer"}
            }
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "cart_id": {"type": "integer"},
                "consumer": {"type": "string"},
                "id": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/order.Line"}},
                "placed_at": {"type": "string"}
            }
        },
        "product.Product": {
            "type": "object",
            "properties": {
                "acidity": {"type": "string"},
                "kind": {"type": "string", "enum": ["tea", "coffee"]},
                "name": {"type": "string"},
                "price": {"type": "integer"},
                "roast_level": {"type": "string"},
                "type": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8443",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Marketplace API",
	Description:      "Producers publish into bounded queues; consumers reserve units into carts and place orders.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
