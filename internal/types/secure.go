package types

const redactedPlaceholder = "***REDACTED***"

// SecretString holds a credential (API keys, DSNs) and refuses to print it.
// String, GoString and MarshalJSON all yield a placeholder; Unmask returns the
// raw value for the few call sites that must hand it to a client.
type SecretString string

func (s SecretString) String() string   { return redactedPlaceholder }
func (s SecretString) GoString() string { return redactedPlaceholder }

// MarshalJSON keeps secrets out of config dumps and structured logs.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// Unmask returns the raw plaintext value.
func (s SecretString) Unmask() string {
	return string(s)
}

// IsSet reports whether a non-empty secret was provided.
func (s SecretString) IsSet() bool {
	return s != ""
}
