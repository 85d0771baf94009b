// Package docs registers the OpenAPI description served at /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {"name": "Rosterdex"},
        "license": {"name": "MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/catalog/generations": {"get": {"tags": ["catalog"], "summary": "List generations", "responses": {"200": {"description": "OK"}, "502": {"description": "Catalog unavailable"}}}},
        "/catalog/generations/{index}": {"get": {"tags": ["catalog"], "summary": "Get generation", "parameters": [{"name": "index", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/catalog/types": {"get": {"tags": ["catalog"], "summary": "List types", "responses": {"200": {"description": "OK"}}}},
        "/catalog/abilities": {"get": {"tags": ["catalog"], "summary": "List abilities", "responses": {"200": {"description": "OK"}}}},
        "/catalog/species/{name}": {"get": {"tags": ["catalog"], "summary": "Get species detail", "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "304": {"description": "Not modified"}, "404": {"description": "Not found"}}}},
        "/sessions": {"post": {"tags": ["sessions"], "summary": "Open session", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}},
        "/sessions/{id}": {"delete": {"tags": ["sessions"], "summary": "Close session", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Closed"}}}},
        "/sessions/{id}/filter": {"get": {"tags": ["filter"], "summary": "Get filter state", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/filter/generation": {"put": {"tags": ["filter"], "summary": "Set generation ceiling", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"ceiling": {"type": "integer"}}}}], "responses": {"200": {"description": "OK (superseded updates report superseded=true)"}, "400": {"description": "Invalid ceiling"}, "502": {"description": "Catalog unavailable"}}}},
        "/sessions/{id}/filter/facets/{facet}": {
            "put": {"tags": ["filter"], "summary": "Load facet", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "facet", "in": "path", "required": true, "type": "string", "enum": ["type1", "type2", "ability"]}, {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"key": {"type": "string"}}}}], "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown key"}, "502": {"description": "Catalog unavailable"}}},
            "delete": {"tags": ["filter"], "summary": "Clear facet", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "facet", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/sessions/{id}/filter/text": {"put": {"tags": ["filter"], "summary": "Set text query", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "properties": {"query": {"type": "string"}}}}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/species": {"get": {"tags": ["filter"], "summary": "Visible species", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "offset", "in": "query", "type": "integer"}, {"name": "limit", "in": "query", "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/roster": {"get": {"tags": ["roster"], "summary": "Current roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/roster/name": {"put": {"tags": ["roster"], "summary": "Rename roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/roster/slots/{slot}": {
            "put": {"tags": ["roster"], "summary": "Add species to slot", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "slot", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown species"}}},
            "patch": {"tags": ["roster"], "summary": "Edit slot", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "slot", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid edit"}}},
            "delete": {"tags": ["roster"], "summary": "Clear slot", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "slot", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}}
        },
        "/sessions/{id}/roster/save": {"post": {"tags": ["roster"], "summary": "Save roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid name"}, "409": {"description": "Name conflict"}}}},
        "/sessions/{id}/roster/new": {"post": {"tags": ["roster"], "summary": "New roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/roster/duplicate": {"post": {"tags": ["roster"], "summary": "Duplicate roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/sessions/{id}/roster/load/{rosterID}": {"post": {"tags": ["roster"], "summary": "Load roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "rosterID", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/sessions/{id}/rosters/{rosterID}": {"delete": {"tags": ["roster"], "summary": "Delete roster from session", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "rosterID", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/rosters": {
            "get": {"tags": ["rosters"], "summary": "List rosters", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["rosters"], "summary": "Create roster", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Name conflict"}}}
        },
        "/rosters/{id}": {
            "get": {"tags": ["rosters"], "summary": "Get roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["rosters"], "summary": "Update roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Name conflict"}}},
            "delete": {"tags": ["rosters"], "summary": "Delete roster", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Rosterdex API",
	Description:      "Roster builder over the PokeAPI species catalog: session-scoped facet filtering, slot editing and owner-scoped roster persistence.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
