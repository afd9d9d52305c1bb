package translate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/animus-labs/tfbridge/internal/domain"
)

// Request variables understood by the translator.
const (
	VarDiscoverURL    = "CUSTOM_DISCOVER_URL"
	VarDiscoverBranch = "CUSTOM_DISCOVER_BRANCH"
	VarDiscoverTests  = "CUSTOM_DISCOVER_TESTS"
	VarHWTarget       = "HW_TARGET"
)

// Pipeline parameter names.
const (
	ParamPlanName         = "plan-name"
	ParamTestName         = "test-name"
	ParamHWTarget         = "hw-target"
	ParamTestRunID        = "testRunId"
	ParamTestsRepo        = "testsRepo"
	ParamExporterLabels   = "exporter-labels"
	ParamTestBranch       = "testBranch"
	ParamClientName       = "client-name"
	ParamLeaseID          = "existing-lease-id"
	ParamContext          = "ctx"
	ParamEnvironment      = "env"
	ParamImageURL         = "image-url"
	ParamAbootImageURL    = "aboot-image-url"
	ParamRootfsImageURL   = "rootfs-image-url"
	ParamTMTImage         = "tmt-image"
	ParamSkipProvisioning = "skipProvisioning"
)

const (
	WorkspaceClientSecret = "jumpstarter-client-secret"
	WorkspaceTestResults  = "test-results"
)

// Translate builds the execution parameters for one run. It performs no I/O
// and returns the same value for the same inputs.
func Translate(runID string, req domain.RunRequest, defaults Defaults) (domain.ExecutionParameters, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return domain.ExecutionParameters{}, fmt.Errorf("%w: run id is required", domain.ErrMalformedRequest)
	}
	env, err := req.Primary()
	if err != nil {
		return domain.ExecutionParameters{}, err
	}
	defaults = defaults.WithFallbacks()

	gitURL := firstNonEmpty(variable(env, VarDiscoverURL), req.Test.FMF.URL)
	if gitURL == "" {
		return domain.ExecutionParameters{}, fmt.Errorf("%w: test source url is required", domain.ErrMalformedRequest)
	}
	branch := firstNonEmpty(variable(env, VarDiscoverBranch), req.Test.FMF.Ref, DefaultTestBranch)
	testName := firstNonEmpty(variable(env, VarDiscoverTests), req.Test.FMF.TestName)
	hwTarget := firstNonEmpty(defaults.BoardType, variable(env, VarHWTarget))

	images, err := resolveImages(env, defaults)
	if err != nil {
		return domain.ExecutionParameters{}, err
	}

	var params paramList
	params.set(ParamPlanName, strings.TrimSpace(req.Test.FMF.Name))
	params.set(ParamTestName, testName)
	params.set(ParamHWTarget, defaults.Boards.Trim(hwTarget))
	params.set(ParamTestRunID, runID)
	params.set(ParamTestsRepo, gitURL)
	params.setList(ParamExporterLabels, exporterLabels(hwTarget, defaults))
	params.set(ParamTestBranch, branch)
	params.set(ParamClientName, firstNonEmpty(req.Settings.Pipeline.Client, defaults.ClientName))
	if lease := strings.TrimSpace(defaults.LeaseID); lease != "" {
		params.set(ParamLeaseID, lease)
	}
	if env.TMT != nil {
		if ctx, ok := opaque(env.TMT.Context); ok {
			params.set(ParamContext, ctx)
		}
		if environment, ok := opaque(env.TMT.Environment); ok {
			params.set(ParamEnvironment, environment)
		}
	}
	if images.disk != "" {
		params.set(ParamImageURL, images.disk)
	}
	if images.boot != "" {
		params.set(ParamAbootImageURL, images.boot)
	}
	if images.root != "" {
		params.set(ParamRootfsImageURL, images.root)
	}
	if tmtImage := strings.TrimSpace(defaults.TMTImage); tmtImage != "" {
		params.set(ParamTMTImage, tmtImage)
	}
	params.set(ParamSkipProvisioning, defaults.SkipProvisioning)

	timeout := defaults.Timeout
	if minutes := req.Settings.Pipeline.Timeout; minutes > 0 {
		timeout = time.Duration(minutes) * time.Minute
	}

	return domain.ExecutionParameters{
		Pipeline: strings.TrimSpace(defaults.Pipeline),
		Params:   params.items,
		Workspaces: []domain.Workspace{
			{Name: WorkspaceClientSecret, Kind: domain.WorkspaceSecret, Source: defaults.SecretWorkspace},
			{Name: WorkspaceTestResults, Kind: domain.WorkspacePVC, Source: defaults.ResultsClaim},
		},
		Labels:         map[string]string{domain.LabelRun: runID},
		ServiceAccount: defaults.ServiceAccount,
		Timeout:        timeout,
	}, nil
}

// ExecutionName is the pipeline execution name used for a run.
func ExecutionName(runID string) string {
	return "test-" + strings.TrimSpace(runID)
}

func exporterLabels(hwTarget string, defaults Defaults) []string {
	if board := strings.TrimSpace(defaults.Board); board != "" {
		return []string{"device=" + board}
	}
	return []string{"board-type=" + defaults.Boards.Normalize(hwTarget)}
}

type images struct {
	disk string
	boot string
	root string
}

type composeDescriptor struct {
	DiskImage string `json:"disk_image"`
	BootImage string `json:"boot_image"`
	RootImage string `json:"root_image"`
}

func resolveImages(env domain.Environment, defaults Defaults) (images, error) {
	if url := strings.TrimSpace(defaults.ImageURL); url != "" {
		return images{disk: url}, nil
	}
	compose := strings.TrimSpace(env.OS.Compose)
	if compose == "" {
		return images{}, fmt.Errorf("%w: environment compose descriptor is required", domain.ErrMalformedRequest)
	}
	var desc composeDescriptor
	if err := json.Unmarshal([]byte(compose), &desc); err != nil {
		return images{}, fmt.Errorf("%w: parse compose descriptor: %v", domain.ErrMalformedRequest, err)
	}
	disk := strings.TrimSpace(desc.DiskImage)
	boot := strings.TrimSpace(desc.BootImage)
	root := strings.TrimSpace(desc.RootImage)
	switch {
	case disk != "":
		return images{disk: disk}, nil
	case boot != "" && root != "":
		return images{boot: boot, root: root}, nil
	default:
		return images{}, fmt.Errorf("%w: compose descriptor names neither disk_image nor boot_image and root_image", domain.ErrMalformedRequest)
	}
}

// opaque compacts a raw JSON object so equal inputs serialize identically.
func opaque(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed), true
	}
	return buf.String(), true
}

func variable(env domain.Environment, key string) string {
	v, _ := env.Variable(key)
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// paramList keeps insertion order and holds each name once; setting a name
// again replaces the value in place.
type paramList struct {
	items []domain.Param
}

func (l *paramList) set(name, value string) {
	l.put(domain.Param{Name: name, Value: value})
}

func (l *paramList) setList(name string, values []string) {
	if values == nil {
		values = []string{}
	}
	l.put(domain.Param{Name: name, Values: values})
}

func (l *paramList) put(p domain.Param) {
	for i := range l.items {
		if l.items[i].Name == p.Name {
			l.items[i] = p
			return
		}
	}
	l.items = append(l.items, p)
}
