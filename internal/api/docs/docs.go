// Package docs holds the Swagger spec for the suggestion API. This copy is
// hand-written in the shape of swag init output; running the go:generate
// directive in cmd/api/main.go (`swag init -g cmd/api/main.go`) replaces it
// with one generated from the route annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/suggestions": {
            "post": {
                "description": "Run the suggestion orchestrator to find available domains for a description, buffered or streamed via SSE.",
                "produces": ["application/json", "text/event-stream"],
                "tags": ["Suggestions"],
                "summary": "Request domain suggestions",
                "parameters": [{
                    "description": "Suggestion request",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/models.SuggestionRequest"}
                }],
                "responses": {
                    "200": {"description": "Suggestion results"},
                    "400": {"description": "Invalid input"},
                    "503": {"description": "Service unavailable"}
                }
            }
        },
        "/domains/{fqdn}": {
            "get": {
                "description": "Return the current stored record for a domain.",
                "produces": ["application/json"],
                "tags": ["Domains"],
                "summary": "Get a domain record",
                "parameters": [{
                    "type": "string",
                    "description": "Fully-qualified domain name",
                    "name": "fqdn",
                    "in": "path",
                    "required": true
                }],
                "responses": {
                    "200": {"description": "Domain record"},
                    "404": {"description": "Domain not found"}
                }
            }
        },
        "/domains/{fqdn}/rate": {
            "post": {
                "description": "Cast or flip a +1/-1 rating on a domain.",
                "produces": ["application/json"],
                "tags": ["Domains"],
                "summary": "Rate a domain",
                "parameters": [{
                    "type": "string",
                    "description": "Fully-qualified domain name",
                    "name": "fqdn",
                    "in": "path",
                    "required": true
                }, {
                    "description": "Rating request",
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/models.RateDomainRequest"}
                }],
                "responses": {
                    "200": {"description": "Updated domain record"},
                    "400": {"description": "Invalid input"},
                    "404": {"description": "Domain not found"}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Report API liveness and worker availability.",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service healthy"},
                    "503": {"description": "Service degraded"}
                }
            }
        },
        "/metrics": {
            "get": {
                "description": "Expose application metrics in Prometheus format.",
                "produces": ["text/plain"],
                "tags": ["System"],
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "Prometheus metrics"}
                }
            }
        }
    },
    "definitions": {
        "models.SuggestionRequest": {
            "type": "object",
            "properties": {
                "description": {"type": "string", "example": "italian restaurant in berlin"},
                "target_count": {"type": "integer", "example": 3},
                "prompt_type": {"type": "string", "example": "legacy"},
                "user_id": {"type": "string"},
                "anon_id": {"type": "string"},
                "source_fqdn": {"type": "string"},
                "stream": {"type": "boolean"}
            }
        },
        "models.RateDomainRequest": {
            "type": "object",
            "properties": {
                "vote": {"type": "integer", "example": 1},
                "user_id": {"type": "string"},
                "anon_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Domain Discovery Suggestion API",
	Description:      "Generates and checks candidate domain names for availability.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
