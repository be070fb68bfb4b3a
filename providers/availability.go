package providers

import "os"

// AvailabilityReport maps a provider id to whether its credentials are
// currently present in the environment.
type AvailabilityReport map[string]bool

// Probe reports, for each given provider, whether every required credential
// is set and non-empty. It reads the environment on every call, so
// credentials can be injected or rotated without a restart, and never touches
// the network.
func Probe(list []Provider) AvailabilityReport {
	report := make(AvailabilityReport, len(list))
	for _, p := range list {
		report[p.Name()] = CredentialsPresent(p)
	}
	return report
}

// CredentialsPresent reports whether all of p's required environment
// variables are set and non-empty.
func CredentialsPresent(p Provider) bool {
	return len(MissingCredentials(p)) == 0
}

// MissingCredentials returns the required environment variables that are
// absent or empty, in the provider's declared order.
func MissingCredentials(p Provider) []string {
	var missing []string
	for _, key := range p.RequiredCredentials() {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
