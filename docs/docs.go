// Package docs serves the OpenAPI description of the HTTP API at /swagger.
// Keep it in step with the @Router annotations on the handlers.
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
		"/health": {
			"get": {
				"produces": [
					"application/json"
				],
				"tags": [
					"system"
				],
				"summary": "Health check",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/api.HealthResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/api.HealthResponse"
						}
					}
				}
			}
		},
		"/metrics": {
			"get": {
				"description": "Exposes Prometheus metrics in text format",
				"produces": [
					"text/plain"
				],
				"tags": [
					"system"
				],
				"summary": "Prometheus metrics",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "string"
						}
					}
				}
			}
		},
		"/me": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"users"
				],
				"summary": "Get current user",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/user.User"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"type": "object"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		},
		"/wallets": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"wallets"
				],
				"summary": "Get my wallets",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ledger.WalletsResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		},
		"/wallets/communal": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"wallets"
				],
				"summary": "Get communal balance",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ledger.Balance"
						}
					},
					"500": {
						"description": "Internal Server Error",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		},
		"/wallets/charge": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Debits the personal wallet, or the communal wallet when prefer_communal is set and the personal balance is short.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"wallets"
				],
				"summary": "Charge tokens",
				"parameters": [
					{
						"description": "Charge request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ledger.ChargeBody"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/ledger.ChargeResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"402": {
						"description": "Payment Required",
						"schema": {
							"$ref": "#/definitions/ledger.ChargeResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		},
		"/wallets/events": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"wallets"
				],
				"summary": "List wallet events",
				"parameters": [
					{
						"type": "integer",
						"default": 50,
						"description": "Max events",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/event.Event"
							}
						}
					}
				}
			}
		},
		"/wallets/transactions": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"wallets"
				],
				"summary": "List transactions",
				"parameters": [
					{
						"type": "integer",
						"default": 50,
						"description": "Page size",
						"name": "limit",
						"in": "query"
					},
					{
						"type": "integer",
						"default": 0,
						"description": "Offset",
						"name": "offset",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/transaction.Transaction"
							}
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		},
		"/wallets/usage": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"usage"
				],
				"summary": "List usage records",
				"parameters": [
					{
						"type": "integer",
						"default": 50,
						"description": "Max records",
						"name": "limit",
						"in": "query"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "array",
							"items": {
								"$ref": "#/definitions/usage.Record"
							}
						}
					}
				}
			}
		},
		"/wallets/transfer": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"wallets"
				],
				"summary": "Transfer tokens",
				"parameters": [
					{
						"description": "Transfer request",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ledger.TransferBody"
						}
					}
				],
				"responses": {
					"501": {
						"description": "Not Implemented",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		},
		"/usage": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"usage"
				],
				"summary": "Record usage for a charge",
				"parameters": [
					{
						"description": "Token counts",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ledger.UsageBody"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/usage.Record"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"409": {
						"description": "Conflict",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		},
		"/admin/accounts": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Open account",
				"parameters": [
					{
						"description": "Account",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ledger.OpenAccountBody"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/wallet.Wallet"
						}
					},
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/wallet.Wallet"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"type": "object"
						}
					}
				}
			}
		},
		"/admin/wallets/topup": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"admin"
				],
				"summary": "Top up a wallet",
				"parameters": [
					{
						"description": "Credit",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/ledger.TopUpBody"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created",
						"schema": {
							"$ref": "#/definitions/transaction.Transaction"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"type": "object"
						}
					},
					"404": {
						"description": "Not Found",
						"schema": {
							"$ref": "#/definitions/api.ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"api.ErrorResponse": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"error": {
					"type": "string"
				}
			}
		},
		"api.HealthResponse": {
			"type": "object",
			"properties": {
				"services": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"status": {
					"type": "string"
				}
			}
		},
		"event.Event": {
			"type": "object",
			"properties": {
				"amount": {
					"type": "string"
				},
				"chat_id": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"id": {
					"type": "string"
				},
				"transaction_id": {
					"type": "integer"
				},
				"type": {
					"type": "string"
				},
				"user_id": {
					"type": "string"
				},
				"world_id": {
					"type": "integer"
				}
			}
		},
		"ledger.Allowance": {
			"type": "object",
			"properties": {
				"limit": {
					"type": "integer"
				},
				"max_request_tokens": {
					"type": "integer"
				},
				"remaining": {
					"type": "integer"
				},
				"role": {
					"type": "string"
				},
				"used": {
					"type": "integer"
				}
			}
		},
		"ledger.Balance": {
			"type": "object",
			"properties": {
				"balance": {
					"type": "string"
				}
			}
		},
		"ledger.ChargeBody": {
			"type": "object",
			"properties": {
				"chat_id": {
					"type": "string"
				},
				"prefer_communal": {
					"type": "boolean"
				},
				"tokens": {
					"type": "integer",
					"maximum": 1000000000000
				},
				"usage": {
					"$ref": "#/definitions/usage.Counts"
				},
				"world_id": {
					"type": "integer"
				},
				"world_name": {
					"type": "string",
					"maxLength": 200
				}
			},
			"required": [
				"tokens"
			]
		},
		"ledger.ChargeResponse": {
			"type": "object",
			"properties": {
				"charged": {
					"$ref": "#/definitions/ledger.Charged"
				},
				"rejected": {
					"type": "string",
					"enum": [
						"insufficient_funds",
						"quota_exceeded"
					]
				}
			}
		},
		"ledger.Charged": {
			"type": "object",
			"properties": {
				"amount": {
					"type": "string"
				},
				"charged_from": {
					"type": "string",
					"enum": [
						"personal",
						"communal"
					]
				},
				"transaction_id": {
					"type": "integer"
				},
				"usage_record_id": {
					"type": "integer"
				}
			}
		},
		"ledger.OpenAccountBody": {
			"type": "object",
			"properties": {
				"role": {
					"type": "string",
					"maxLength": 50
				},
				"user_id": {
					"type": "string"
				}
			},
			"required": [
				"role",
				"user_id"
			]
		},
		"ledger.TopUpBody": {
			"type": "object",
			"properties": {
				"amount": {
					"type": "string"
				},
				"description": {
					"type": "string",
					"maxLength": 255
				},
				"kind": {
					"type": "string",
					"enum": [
						"topup",
						"admin_adjust"
					]
				},
				"target": {
					"type": "string",
					"enum": [
						"personal",
						"communal"
					]
				},
				"user_id": {
					"type": "string"
				}
			}
		},
		"ledger.TransferBody": {
			"type": "object",
			"properties": {
				"amount": {
					"type": "string"
				},
				"to_user_id": {
					"type": "string"
				}
			},
			"required": [
				"to_user_id"
			]
		},
		"ledger.UsageBody": {
			"type": "object",
			"properties": {
				"completion_tokens": {
					"type": "integer"
				},
				"model": {
					"type": "string",
					"maxLength": 100
				},
				"prompt_tokens": {
					"type": "integer"
				},
				"response_id": {
					"type": "string",
					"maxLength": 200
				},
				"total_tokens": {
					"type": "integer"
				},
				"transaction_id": {
					"type": "integer"
				}
			},
			"required": [
				"transaction_id"
			]
		},
		"ledger.WalletsResponse": {
			"type": "object",
			"properties": {
				"communal": {
					"$ref": "#/definitions/ledger.Balance"
				},
				"communal_allowance": {
					"$ref": "#/definitions/ledger.Allowance"
				},
				"personal": {
					"$ref": "#/definitions/ledger.Balance"
				}
			}
		},
		"transaction.Transaction": {
			"type": "object",
			"properties": {
				"amount": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				},
				"from_wallet_id": {
					"type": "integer"
				},
				"id": {
					"type": "integer"
				},
				"kind": {
					"type": "string",
					"enum": [
						"topup",
						"usage",
						"transfer",
						"communal_withdraw",
						"admin_adjust"
					]
				},
				"meta": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"to_wallet_id": {
					"type": "integer"
				}
			}
		},
		"usage.Counts": {
			"type": "object",
			"properties": {
				"completion_tokens": {
					"type": "integer"
				},
				"model": {
					"type": "string",
					"maxLength": 100
				},
				"prompt_tokens": {
					"type": "integer"
				},
				"response_id": {
					"type": "string",
					"maxLength": 200
				},
				"total_tokens": {
					"type": "integer"
				}
			}
		},
		"usage.Record": {
			"type": "object",
			"properties": {
				"completion_tokens": {
					"type": "integer"
				},
				"created_at": {
					"type": "string"
				},
				"id": {
					"type": "integer"
				},
				"prompt_tokens": {
					"type": "integer"
				},
				"provider_meta": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"total_tokens": {
					"type": "integer"
				},
				"transaction_id": {
					"type": "integer"
				},
				"user_id": {
					"type": "string"
				}
			}
		},
		"user.User": {
			"type": "object",
			"properties": {
				"created_at": {
					"type": "string"
				},
				"id": {
					"type": "string"
				},
				"role": {
					"type": "string"
				}
			}
		},
		"wallet.Wallet": {
			"type": "object",
			"properties": {
				"balance": {
					"type": "string"
				},
				"created_at": {
					"type": "string"
				},
				"id": {
					"type": "integer"
				},
				"kind": {
					"type": "string",
					"enum": [
						"personal",
						"communal"
					]
				},
				"updated_at": {
					"type": "string"
				},
				"user_id": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Nooveria Ledger API",
	Description:      "Token wallets, charging and usage accounting for chat sessions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
