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
Package cli provides the root command for flowsmith's CLI.

This package creates the Cobra command tree and handles global concerns like
version information, persistent flags and error handling. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	flowsmith
	├── generate      Generate a workflow from a prompt
	├── validate      Extract, repair and validate workflow JSON
	├── lint          Report structural issues
	├── placeholders  List or fill {{CRED:name}} placeholders
	├── simulate      Run a mock execution against the test payload
	├── query         Evaluate a jq expression against a workflow
	├── examples      Bundled example workflows
	├── export        Import a workflow into n8n or write it to a file
	├── catalog       Summarize the example workflow catalog
	├── serve         Start the HTTP API server
	├── server        Talk to a running API server
	├── state         Persisted settings and last workflow
	├── secrets       Secret management
	├── version       Show version
	└── help          Show help

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	if err := cli.NewRootCommand().Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

	--verbose, -v    Enable verbose output
	--quiet, -q      Suppress non-error output
	--json           Output in JSON format
	--config         Path to config file

# Exit Codes

  - 0: success
  - 1: general failure
  - 2: the workflow is invalid
  - 3: missing or bad input
  - 4: the LLM provider or n8n failed
*/
package cli
