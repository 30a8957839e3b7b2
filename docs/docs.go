// Package docs holds the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag/v2"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/plans": {
            "get": {
                "operationId": "listPlans",
                "summary": "List plans",
                "tags": [
                    "plans"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/billing.PlanResponse"
                                    }
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "500": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/plans/{id}": {
            "get": {
                "operationId": "getPlan",
                "summary": "Get a plan",
                "tags": [
                    "plans"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.PlanResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/admin/plans": {
            "post": {
                "operationId": "createPlan",
                "summary": "Create a plan",
                "tags": [
                    "admin"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.PlanResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/billing.CreatePlanInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/admin/plans/{id}": {
            "put": {
                "operationId": "updatePlan",
                "summary": "Update a plan",
                "tags": [
                    "admin"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.PlanResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/billing.PlanInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "operationId": "deletePlan",
                "summary": "Delete a plan",
                "tags": [
                    "admin"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/me/entitlement": {
            "get": {
                "operationId": "getMyEntitlement",
                "summary": "Get the caller's entitlement",
                "tags": [
                    "billing"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.EntitlementResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/billing/free-plan": {
            "post": {
                "operationId": "applyFreePlan",
                "summary": "Switch to a free plan",
                "tags": [
                    "billing"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.TransitionResult"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/billing.ApplyFreePlanInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/billing/orders": {
            "post": {
                "operationId": "createPaymentOrder",
                "summary": "Create a payment order",
                "tags": [
                    "billing"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.OrderResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "503": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/billing.CreateOrderInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/billing/verify": {
            "post": {
                "operationId": "verifyPayment",
                "summary": "Verify a payment and apply the paid plan",
                "tags": [
                    "billing"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/billing.TransitionResult"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "401": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "500": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/billing.VerifyPaymentInput"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/documents": {
            "post": {
                "operationId": "createDocument",
                "summary": "Create a document",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/document.DocumentResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "402": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/document.CreateDocumentRequest"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "get": {
                "operationId": "listDocuments",
                "summary": "List documents",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/document.DocumentResponse"
                                    }
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "type",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "status",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "from",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "to",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "page",
                        "type": "integer"
                    },
                    {
                        "in": "query",
                        "name": "page_size",
                        "type": "integer"
                    },
                    {
                        "in": "query",
                        "name": "order_by",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "order_dir",
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/documents/{id}": {
            "get": {
                "operationId": "getDocument",
                "summary": "Get a document",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/document.DocumentResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "put": {
                "operationId": "updateDocument",
                "summary": "Update a document",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/document.DocumentResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/document.UpdateDocumentRequest"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "delete": {
                "operationId": "deleteDocument",
                "summary": "Delete a document",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/documents/{id}/status": {
            "post": {
                "operationId": "updateDocumentStatus",
                "summary": "Change a document's status",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/document.DocumentResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/document.UpdateStatusRequest"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/documents/{id}/convert": {
            "post": {
                "operationId": "convertQuote",
                "summary": "Convert an accepted quote to an invoice",
                "tags": [
                    "documents"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/document.DocumentResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "402": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/reports/summary": {
            "get": {
                "operationId": "getMonthlySummary",
                "summary": "Monthly invoice summary",
                "tags": [
                    "reports"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/document.SummaryResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api-keys": {
            "post": {
                "operationId": "createAPIKey",
                "summary": "Create an API key",
                "tags": [
                    "api-keys"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/identity.CreatedAPIKeyResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "body",
                        "name": "request",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/identity.CreateAPIKeyRequest"
                        }
                    }
                ],
                "consumes": [
                    "application/json"
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            },
            "get": {
                "operationId": "listAPIKeys",
                "summary": "List API keys",
                "tags": [
                    "api-keys"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "type": "array",
                                    "items": {
                                        "$ref": "#/definitions/identity.APIKeyResponse"
                                    }
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/api-keys/{id}": {
            "delete": {
                "operationId": "revokeAPIKey",
                "summary": "Revoke an API key",
                "tags": [
                    "api-keys"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "204": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "required": true,
                        "type": "string"
                    }
                ],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ]
            }
        },
        "/identity/webhook": {
            "post": {
                "operationId": "receiveIdentityWebhook",
                "summary": "Identity provider webhook",
                "tags": [
                    "webhooks"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/handler.WebhookAck"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/handler.ErrorResponse"
                        }
                    }
                },
                "parameters": [
                    {
                        "in": "header",
                        "name": "X-Webhook-Signature",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/system/info": {
            "get": {
                "operationId": "getSystemInfo",
                "summary": "Get system information",
                "tags": [
                    "system"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/handler.SystemInfoResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    }
                }
            }
        },
        "/system/ping": {
            "get": {
                "operationId": "pingSystem",
                "summary": "Ping the API",
                "tags": [
                    "system"
                ],
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "success": {
                                    "type": "boolean"
                                },
                                "data": {
                                    "$ref": "#/definitions/handler.PingResponse"
                                },
                                "meta": {
                                    "$ref": "#/definitions/dto.Meta"
                                }
                            }
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorInfo": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "request_id": {
                    "type": "string"
                },
                "retryable": {
                    "type": "boolean"
                },
                "details": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "field": {
                                "type": "string"
                            },
                            "message": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "dto.Meta": {
            "type": "object",
            "properties": {
                "total": {
                    "type": "integer"
                },
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_pages": {
                    "type": "integer"
                }
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {
                    "type": "boolean"
                },
                "error": {
                    "$ref": "#/definitions/dto.ErrorInfo"
                }
            }
        },
        "handler.WebhookAck": {
            "type": "object",
            "properties": {
                "received": {
                    "type": "boolean"
                }
            }
        },
        "handler.SystemInfoResponse": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "version": {
                    "type": "string"
                },
                "go_version": {
                    "type": "string"
                },
                "uptime": {
                    "type": "string"
                }
            }
        },
        "handler.PingResponse": {
            "type": "object",
            "properties": {
                "message": {
                    "type": "string"
                },
                "timestamp": {
                    "type": "string"
                }
            }
        },
        "billing.PlanResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "price_minor": {
                    "type": "integer"
                },
                "price": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "invoice_limit": {
                    "type": "integer"
                },
                "team_member_limit": {
                    "type": "integer"
                },
                "features": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "sort_order": {
                    "type": "integer"
                }
            }
        },
        "billing.PlanInput": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "price_minor": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "invoice_limit": {
                    "type": "integer"
                },
                "team_member_limit": {
                    "type": "integer"
                },
                "features": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "sort_order": {
                    "type": "integer"
                }
            }
        },
        "billing.CreatePlanInput": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "price_minor": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "invoice_limit": {
                    "type": "integer"
                },
                "team_member_limit": {
                    "type": "integer"
                },
                "features": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "sort_order": {
                    "type": "integer"
                }
            }
        },
        "billing.EntitlementResponse": {
            "type": "object",
            "properties": {
                "user_id": {
                    "type": "string"
                },
                "assigned_plan_id": {
                    "type": "string"
                },
                "plan": {
                    "$ref": "#/definitions/billing.PlanResponse"
                },
                "used_this_month": {
                    "type": "integer"
                },
                "usage_known": {
                    "type": "boolean"
                },
                "is_limit_reached": {
                    "type": "boolean"
                },
                "remaining_invoices": {
                    "type": "integer"
                },
                "fell_back": {
                    "type": "boolean"
                }
            }
        },
        "billing.CreateOrderInput": {
            "type": "object",
            "properties": {
                "plan_id": {
                    "type": "string"
                },
                "amount_minor": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                }
            }
        },
        "billing.OrderResponse": {
            "type": "object",
            "properties": {
                "order_id": {
                    "type": "string"
                },
                "key_id": {
                    "type": "string"
                },
                "plan_id": {
                    "type": "string"
                },
                "amount_minor": {
                    "type": "integer"
                },
                "currency": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "billing.VerifyPaymentInput": {
            "type": "object",
            "properties": {
                "plan_id": {
                    "type": "string"
                },
                "order_id": {
                    "type": "string"
                },
                "payment_id": {
                    "type": "string"
                },
                "signature": {
                    "type": "string"
                }
            }
        },
        "billing.ApplyFreePlanInput": {
            "type": "object",
            "properties": {
                "plan_id": {
                    "type": "string"
                }
            }
        },
        "billing.TransitionResult": {
            "type": "object",
            "properties": {
                "plan_id": {
                    "type": "string"
                },
                "previous_plan_id": {
                    "type": "string"
                },
                "applied": {
                    "type": "boolean"
                },
                "payment_id": {
                    "type": "string"
                }
            }
        },
        "document.PartyDTO": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "address": {
                    "type": "string"
                },
                "tax_id": {
                    "type": "string"
                }
            }
        },
        "document.ContentDTO": {
            "type": "object",
            "properties": {
                "items": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "description": {
                                "type": "string"
                            },
                            "quantity": {
                                "type": "string",
                                "example": "0.00"
                            },
                            "unit_price": {
                                "type": "string",
                                "example": "0.00"
                            },
                            "amount": {
                                "type": "string",
                                "example": "0.00"
                            }
                        }
                    }
                },
                "from": {
                    "$ref": "#/definitions/document.PartyDTO"
                },
                "to": {
                    "$ref": "#/definitions/document.PartyDTO"
                },
                "currency": {
                    "type": "string"
                },
                "tax_rate": {
                    "type": "string",
                    "example": "0.00"
                },
                "discount": {
                    "type": "string",
                    "example": "0.00"
                },
                "notes": {
                    "type": "string"
                },
                "issue_date": {
                    "type": "string"
                },
                "due_date": {
                    "type": "string"
                }
            }
        },
        "document.CreateDocumentRequest": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string"
                },
                "content": {
                    "$ref": "#/definitions/document.ContentDTO"
                },
                "recurring": {
                    "type": "object",
                    "properties": {
                        "frequency": {
                            "type": "string"
                        },
                        "next_issue_date": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "document.UpdateDocumentRequest": {
            "type": "object",
            "properties": {
                "content": {
                    "$ref": "#/definitions/document.ContentDTO"
                },
                "recurring": {
                    "type": "object",
                    "properties": {
                        "frequency": {
                            "type": "string"
                        },
                        "next_issue_date": {
                            "type": "string"
                        }
                    }
                },
                "version": {
                    "type": "integer"
                }
            }
        },
        "document.UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {
                    "type": "string"
                }
            }
        },
        "document.DocumentResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "number": {
                    "type": "string"
                },
                "type": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "content": {
                    "$ref": "#/definitions/document.ContentDTO"
                },
                "totals": {
                    "type": "object",
                    "properties": {
                        "subtotal": {
                            "type": "string",
                            "example": "0.00"
                        },
                        "discount": {
                            "type": "string",
                            "example": "0.00"
                        },
                        "tax": {
                            "type": "string",
                            "example": "0.00"
                        },
                        "total": {
                            "type": "string",
                            "example": "0.00"
                        }
                    }
                },
                "source_quote_id": {
                    "type": "string"
                },
                "converted_invoice_id": {
                    "type": "string"
                },
                "version": {
                    "type": "integer"
                },
                "created_at": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                }
            }
        },
        "document.SummaryResponse": {
            "type": "object",
            "properties": {
                "period_start": {
                    "type": "string"
                },
                "period_end": {
                    "type": "string"
                },
                "count": {
                    "type": "integer"
                },
                "total": {
                    "type": "string",
                    "example": "0.00"
                },
                "by_status": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "status": {
                                "type": "string"
                            },
                            "count": {
                                "type": "integer"
                            },
                            "total": {
                                "type": "string",
                                "example": "0.00"
                            }
                        }
                    }
                }
            }
        },
        "identity.CreateAPIKeyRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                }
            }
        },
        "identity.APIKeyResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "prefix": {
                    "type": "string"
                },
                "last_used_at": {
                    "type": "string"
                },
                "revoked_at": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                }
            }
        },
        "identity.CreatedAPIKeyResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "prefix": {
                    "type": "string"
                },
                "last_used_at": {
                    "type": "string"
                },
                "revoked_at": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string"
                },
                "key": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer token authentication. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        },
        "APIKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Billing API",
	Description:      "Plans, entitlements, checkout and documents for the billing service",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
