package translate

import (
	"strings"
	"time"
)

const (
	DefaultBoardTypeSuffix  = "-ocp"
	DefaultClientName       = "demo"
	DefaultServiceAccount   = "pipeline"
	DefaultSecretWorkspace  = "demo-config"
	DefaultResultsClaim     = "tmt-results"
	DefaultTestBranch       = "main"
	DefaultSkipProvisioning = "false"
)

// Defaults is the operator-level configuration that takes part in
// translation. Non-empty overrides win over request values.
type Defaults struct {
	Pipeline string

	// BoardType overrides the request's HW_TARGET variable.
	BoardType string
	// Board pins the run to one exporter by device name.
	Board    string
	ImageURL string
	TMTImage string
	LeaseID  string

	SkipProvisioning string
	ClientName       string
	ServiceAccount   string
	SecretWorkspace  string
	ResultsClaim     string
	Timeout          time.Duration

	Boards BoardTypes
}

// WithFallbacks fills unset fields with the built-in defaults.
func (d Defaults) WithFallbacks() Defaults {
	if strings.TrimSpace(d.SkipProvisioning) == "" {
		d.SkipProvisioning = DefaultSkipProvisioning
	}
	if strings.TrimSpace(d.ClientName) == "" {
		d.ClientName = DefaultClientName
	}
	if strings.TrimSpace(d.ServiceAccount) == "" {
		d.ServiceAccount = DefaultServiceAccount
	}
	if strings.TrimSpace(d.SecretWorkspace) == "" {
		d.SecretWorkspace = DefaultSecretWorkspace
	}
	if strings.TrimSpace(d.ResultsClaim) == "" {
		d.ResultsClaim = DefaultResultsClaim
	}
	if d.Boards.Suffix == "" && d.Boards.Aliases == nil {
		d.Boards = DefaultBoardTypes()
	}
	return d
}

// BoardTypes normalizes hardware targets into exporter board-type labels.
type BoardTypes struct {
	Suffix  string
	Aliases map[string]string
}

func DefaultBoardTypes() BoardTypes {
	return BoardTypes{
		Suffix: DefaultBoardTypeSuffix,
		Aliases: map[string]string{
			"ridesx4": "qc8775",
		},
	}
}

// Merge returns a copy with extra aliases layered over the receiver's.
func (b BoardTypes) Merge(aliases map[string]string) BoardTypes {
	out := BoardTypes{Suffix: b.Suffix, Aliases: make(map[string]string, len(b.Aliases)+len(aliases))}
	for k, v := range b.Aliases {
		out.Aliases[k] = v
	}
	for k, v := range aliases {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out.Aliases[k] = strings.TrimSpace(v)
	}
	return out
}

// Trim strips the configured suffix from a hardware target.
func (b BoardTypes) Trim(hwTarget string) string {
	hwTarget = strings.TrimSpace(hwTarget)
	if b.Suffix == "" {
		return hwTarget
	}
	return strings.TrimSuffix(hwTarget, b.Suffix)
}

// Normalize maps a hardware target to its canonical board type. An alias on
// the raw target wins over one on the trimmed target.
func (b BoardTypes) Normalize(hwTarget string) string {
	hwTarget = strings.TrimSpace(hwTarget)
	if alias, ok := b.Aliases[hwTarget]; ok && alias != "" {
		return alias
	}
	trimmed := b.Trim(hwTarget)
	if alias, ok := b.Aliases[trimmed]; ok && alias != "" {
		return alias
	}
	return trimmed
}
