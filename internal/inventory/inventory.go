// Package inventory lists the test boards registered as Jumpstarter
// exporters.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/tfbridge/internal/platform/k8s"
	"github.com/animus-labs/tfbridge/internal/translate"
)

var exporters = k8s.Resource{Group: "jumpstarter.dev", Version: "v1alpha1", Plural: "exporters"}

// ErrUnknownBoardType is returned for board types outside the served set.
var ErrUnknownBoardType = errors.New("unknown board type")

const labelBoardType = "board-type"

// DefaultBoardTypes are the board types served when none are configured.
var DefaultBoardTypes = []string{"j784s4evm", "rcar_s4", "ridesx4"}

type Board struct {
	Name     string            `json:"name"`
	Enabled  bool              `json:"enabled"`
	Borrowed bool              `json:"borrowed"`
	Labels   map[string]string `json:"labels,omitempty"`
}

type exporter struct {
	Metadata k8s.ObjectMeta `json:"metadata"`
}

type exporterList struct {
	Items []exporter `json:"items"`
}

type Lister struct {
	client    *k8s.Client
	namespace string
	boards    translate.BoardTypes
	served    map[string]struct{}
}

func NewLister(client *k8s.Client, namespace string, boards translate.BoardTypes, served []string) (*Lister, error) {
	if client == nil {
		return nil, errors.New("kubernetes client is required")
	}
	if len(served) == 0 {
		served = DefaultBoardTypes
	}
	set := make(map[string]struct{}, len(served))
	for _, b := range served {
		if b = strings.TrimSpace(b); b != "" {
			set[b] = struct{}{}
		}
	}
	return &Lister{client: client, namespace: strings.TrimSpace(namespace), boards: boards, served: set}, nil
}

// Boards lists exporters labelled with the normalized board type.
func (l *Lister) Boards(ctx context.Context, boardType string) ([]Board, error) {
	boardType = strings.TrimSpace(boardType)
	if _, ok := l.served[boardType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoardType, boardType)
	}
	selector := labelBoardType + "=" + l.boards.Normalize(boardType)

	var list exporterList
	if err := l.client.List(ctx, exporters, l.namespace, selector, &list); err != nil {
		return nil, fmt.Errorf("list exporters: %w", err)
	}
	out := make([]Board, 0, len(list.Items))
	for _, item := range list.Items {
		enabled, ok := item.Metadata.Labels["enabled"]
		out = append(out, Board{
			Name:     item.Metadata.Name,
			Enabled:  !ok || enabled == "true",
			Borrowed: false,
			Labels:   item.Metadata.Labels,
		})
	}
	return out, nil
}
