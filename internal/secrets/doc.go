// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package secrets resolves the credentials flowsmith itself needs, such as
the Groq API key, the n8n API key and the JWT signing secret.

Configuration values are secret references:

	llm:
	  api_key: env:GROQ_API_KEY
	n8n:
	  api_key: keychain:n8n
	server:
	  auth:
	    jwt_secret: file:jwt

# Backends

	env      - environment variables (as named, or FLOWSMITH_SECRET_<KEY>)
	keychain - OS keychain (macOS Keychain, Linux Secret Service), service "flowsmith"
	file     - AES-256-GCM encrypted file, key derived with argon2id

A string with no known scheme is used as-is.

# Masking

The Resolver registers every value it returns with a pkg/secrets Masker,
which the log handler consults, so resolved credentials are never logged.

Credentials referenced by generated workflows ({{CRED:name}} placeholders)
are not resolved here; they are substituted from a caller-supplied mapping
at export time.
*/
package secrets
