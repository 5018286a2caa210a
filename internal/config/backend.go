package config

// ConfigBackend abstracts where non-secret config keys live. macOS stores
// them in UserDefaults under the com.otvet.app domain via the `defaults`
// CLI; other platforms use a JSON file in the XDG config directory. Secret
// keys never pass through a backend, they come from env vars or the
// keychain.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
