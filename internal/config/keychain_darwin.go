//go:build darwin

package config

import "os/exec"

// keychainExec reads a generic password from the login keychain. API keys
// are expected under service "otvet" with accounts claude_api_key and
// perplexity_api_key.
func keychainExec(service, account string) ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
}
