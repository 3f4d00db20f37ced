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
Package client provides an HTTP client for a running flowsmith API server.

The CLI uses it to check on a server started with "flowsmith serve" or
flowsmithd:

	c, err := client.FromEnvironment()
	if err != nil {
	    return err
	}
	health, err := c.Health(ctx)

# Configuration

FromEnvironment reads:

  - FLOWSMITH_SERVER_URL: base URL of the server (default http://127.0.0.1:8787)
  - FLOWSMITH_TOKEN: bearer token for servers with authentication enabled

# Errors

Failure envelopes returned by the server are decoded into
*errors.APIError, so callers see the same code and message the server
reported.
*/
package client
