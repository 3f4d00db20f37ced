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

// Package secrets implements the secrets command.
package secrets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/flowsmith/internal/cli/prompt"
	"github.com/tombee/flowsmith/internal/commands/shared"
	"github.com/tombee/flowsmith/internal/secrets"
)

// NewCommand creates the secrets command for secret management.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage stored secrets (API keys, credentials)",
		Long: `Manage the secrets that configuration values refer to.

A secret is named by a reference of the form scheme:key:
  env:GROQ_API_KEY      environment variable (read-only)
  keychain:groq         system keychain (macOS Keychain, Secret Service, Windows)
  file:groq             encrypted file, unlocked by FLOWSMITH_MASTER_KEY

Point configuration at a stored secret, e.g. llm.api_key: keychain:groq.`,
		Example: `  flowsmith secrets set keychain:groq
  echo "$N8N_KEY" | flowsmith secrets set file:n8n
  flowsmith secrets list
  flowsmith secrets delete keychain:groq --force`,
	}

	cmd.AddCommand(newSetCommand(), newGetCommand(), newListCommand(), newDeleteCommand())
	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <reference>",
		Short: "Store a secret",
		Long: `Store a secret under a keychain: or file: reference.

The value is read from standard input when it is piped, otherwise from a
hidden prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if err := validateReference(ref); err != nil {
				return err
			}

			value, err := readSecretValue(cmd)
			if err != nil {
				return shared.NewFailedError("failed to read secret value", err)
			}
			if value == "" {
				return shared.NewMissingInputError("secret value cannot be empty", nil)
			}

			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			if err := a.Secrets.Set(cmd.Context(), ref, value); err != nil {
				return backendError("failed to store secret", err)
			}
			scheme, _ := secrets.ParseReference(ref)
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Secret stored in %s backend", scheme)))
			return nil
		},
	}
}

func newGetCommand() *cobra.Command {
	var unmask bool
	cmd := &cobra.Command{
		Use:   "get <reference>",
		Short: "Retrieve a secret value",
		Long:  "Retrieve a secret. The value is masked unless --unmask is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if err := validateReference(ref); err != nil {
				return err
			}

			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			value, err := a.Secrets.Resolve(cmd.Context(), ref)
			if err != nil {
				if errors.Is(err, secrets.ErrSecretNotFound) {
					return shared.NewMissingInputError(fmt.Sprintf("secret not found: %s", ref), nil)
				}
				return backendError("failed to read secret", err)
			}

			if unmask {
				fmt.Fprintln(cmd.OutOrStdout(), value)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (use --unmask to show full value)\n", maskSecret(value))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unmask, "unmask", false, "Show full value (not masked)")
	return cmd
}

// ListEntry is one secret in the --json output of secrets list.
type ListEntry struct {
	Reference string `json:"reference"`
	Backend   string `json:"backend"`
	ReadOnly  bool   `json:"read_only"`
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret references",
		Long: `List the secrets every available backend can enumerate. Values are
never shown. The environment backend lists FLOWSMITH_SECRET_* variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			metadata, err := a.Secrets.List(cmd.Context())
			if err != nil {
				return shared.NewFailedError("failed to list secrets", err)
			}
			entries := make([]ListEntry, 0, len(metadata))
			for _, m := range metadata {
				entries = append(entries, ListEntry{Reference: m.Backend + ":" + m.Key, Backend: m.Backend, ReadOnly: m.ReadOnly})
			}

			if shared.GetJSON() {
				return shared.EmitJSON(cmd.OutOrStdout(), struct {
					shared.JSONResponse
					Backends []string    `json:"backends"`
					Secrets  []ListEntry `json:"secrets"`
				}{shared.NewJSONResponse("secrets list"), a.Secrets.Backends(), entries})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("backends:"), strings.Join(a.Secrets.Backends(), ", "))
			if len(entries) == 0 {
				fmt.Fprintln(w, "No secrets stored")
				return nil
			}
			for _, e := range entries {
				line := e.Reference
				if e.ReadOnly {
					line += shared.Muted.Render(" (read-only)")
				}
				fmt.Fprintln(w, "  "+line)
			}
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <reference>",
		Short: "Remove a secret",
		Long:  "Remove a secret. Requires confirmation unless --force is used.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if err := validateReference(ref); err != nil {
				return err
			}

			if !force {
				p := newPrompter(!shared.IsNonInteractive())
				if !p.IsInteractive() {
					return shared.NewMissingInputError("refusing to delete without confirmation in non-interactive mode (use --force)", nil)
				}
				ok, err := p.Confirm(cmd.Context(), fmt.Sprintf("Delete secret %s?", ref), false)
				if err != nil {
					return shared.NewFailedError("confirmation cancelled", err)
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "Deletion cancelled")
					return nil
				}
			}

			a, err := shared.OpenApp(cmd)
			if err != nil {
				return shared.Classify("failed to initialize", err)
			}
			defer shared.CloseApp(cmd, a)

			if err := a.Secrets.Delete(cmd.Context(), ref); err != nil {
				if errors.Is(err, secrets.ErrSecretNotFound) {
					return shared.NewMissingInputError(fmt.Sprintf("secret not found: %s", ref), nil)
				}
				return backendError("failed to delete secret", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("Secret deleted"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

// newPrompter is replaced in tests.
var newPrompter = func(interactive bool) prompt.Prompter {
	return prompt.NewTerminalPrompter(interactive)
}

// readSecretValue reads piped stdin, or prompts with hidden input when
// stdin is a terminal.
func readSecretValue(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter secret value (hidden): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// maskSecret masks a secret value for display.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// validateReference requires a known scheme and a key without spaces.
func validateReference(ref string) error {
	if !secrets.IsReference(ref) {
		return shared.NewMissingInputError(fmt.Sprintf("%q is not a secret reference (want env:, keychain: or file: followed by a name)", ref), nil)
	}
	_, key := secrets.ParseReference(ref)
	if strings.TrimSpace(key) == "" {
		return shared.NewMissingInputError("secret reference has an empty name", nil)
	}
	if strings.ContainsAny(key, " \t\n") {
		return shared.NewMissingInputError("secret name cannot contain whitespace", nil)
	}
	return nil
}

func backendError(msg string, err error) error {
	switch {
	case errors.Is(err, secrets.ErrReadOnlyBackend):
		return shared.NewFailedError(msg+": the backend is read-only", err)
	case errors.Is(err, secrets.ErrBackendUnavailable):
		return shared.NewFailedError(msg+": the backend is unavailable (set FLOWSMITH_MASTER_KEY for file:, check keychain access for keychain:)", err)
	}
	return shared.NewFailedError(msg, err)
}
