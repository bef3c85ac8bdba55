package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Civil Registration API",
        "description": "Registration and certification of births, marriages, and deaths.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Births", "description": "Birth record registration"},
        {"name": "Marriages", "description": "Marriage record registration"},
        {"name": "Deaths", "description": "Death record registration"},
        {"name": "Certificates", "description": "Certificate issuance and download"},
        {"name": "Statistics", "description": "Aggregated vital statistics"},
        {"name": "XML Reports", "description": "XML documents for external government systems"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/births": {
            "get": {
                "tags": ["Births"],
                "summary": "List birth records",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "region", "in": "query", "type": "string"},
                    {"name": "officeId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Births"],
                "summary": "Register a birth",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBirthRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/births/{id}": {
            "get": {
                "tags": ["Births"],
                "summary": "Get birth record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Births"],
                "summary": "Update birth record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateBirthRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Births"],
                "summary": "Delete birth record",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Record is referenced"}
                }
            }
        },
        "/certificates/{id}/download": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download certificate PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        },
        "/stats/dashboard": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Dashboard headline counters",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/xml/citizens/{id}": {
            "get": {
                "tags": ["XML Reports"],
                "summary": "Full citizen life-event report",
                "security": [{"BearerAuth": []}],
                "produces": ["application/xml"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "XML document"}
                }
            }
        },
        "/reports/xml/vital-statistics": {
            "get": {
                "tags": ["XML Reports"],
                "summary": "National vital statistics report",
                "security": [{"BearerAuth": []}],
                "produces": ["application/xml"],
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "region", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "XML document"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {
            "type": "object",
            "properties": {
                "refresh_token": {"type": "string"}
            },
            "required": ["refresh_token"]
        },
        "CreateBirthRequest": {
            "type": "object",
            "properties": {
                "certificate_no": {"type": "string"},
                "date_of_birth": {"type": "string", "format": "date-time"},
                "place_of_birth": {"type": "string"},
                "child_first_name": {"type": "string"},
                "child_middle_name": {"type": "string"},
                "child_last_name": {"type": "string"},
                "gender": {"type": "string", "enum": ["M", "F"]},
                "father_name": {"type": "string"},
                "mother_name": {"type": "string"},
                "nationality": {"type": "string"},
                "registration_office_id": {"type": "string"},
                "registration_date": {"type": "string", "format": "date-time"},
                "status": {"type": "string", "enum": ["pending", "registered", "rejected"]}
            },
            "required": ["date_of_birth", "place_of_birth", "child_first_name", "child_last_name", "gender", "registration_office_id", "registration_date"]
        },
        "UpdateBirthRequest": {
            "type": "object",
            "properties": {
                "date_of_birth": {"type": "string", "format": "date-time"},
                "place_of_birth": {"type": "string"},
                "child_first_name": {"type": "string"},
                "child_middle_name": {"type": "string"},
                "child_last_name": {"type": "string"},
                "gender": {"type": "string", "enum": ["M", "F"]},
                "father_name": {"type": "string"},
                "mother_name": {"type": "string"},
                "nationality": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "registered", "rejected"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "field": {"type": "string"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
