package resolver

import (
	"encoding/base64"

	"github.com/gabriel-vasile/mimetype"
)

// Snapshot captures everything one node execution step exposes to
// expressions: the current items, node and workflow identity, parameters,
// and the surrounding indices. Snapshots load from JSON, YAML, or TOML and
// are treated as immutable once stored.
type Snapshot struct {
	Workflow   WorkflowInfo      `json:"workflow" yaml:"workflow" toml:"workflow"`
	Node       NodeInfo          `json:"node" yaml:"node" toml:"node"`
	Parameters map[string]any    `json:"parameters,omitempty" yaml:"parameters,omitempty" toml:"parameters,omitempty"`
	Items      []Item            `json:"items" yaml:"items" toml:"items"`
	PrevNode   PrevNodeInfo      `json:"prevNode" yaml:"prevNode" toml:"prevNode"`
	RunIndex   int               `json:"runIndex" yaml:"runIndex" toml:"runIndex"`
	ItemIndex  int               `json:"itemIndex" yaml:"itemIndex" toml:"itemIndex"`
	Env        map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
	Data       map[string]any    `json:"data,omitempty" yaml:"data,omitempty" toml:"data,omitempty"`
}

// WorkflowInfo identifies the running workflow.
type WorkflowInfo struct {
	ID     string `json:"id" yaml:"id" toml:"id"`
	Name   string `json:"name" yaml:"name" toml:"name"`
	Active bool   `json:"active" yaml:"active" toml:"active"`
}

// NodeInfo identifies the node whose expressions are being evaluated.
type NodeInfo struct {
	Name        string         `json:"name" yaml:"name" toml:"name"`
	Type        string         `json:"type" yaml:"type" toml:"type"`
	TypeVersion int            `json:"typeVersion,omitempty" yaml:"typeVersion,omitempty" toml:"typeVersion,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty" toml:"parameters,omitempty"`
}

// PrevNodeInfo identifies the upstream node whose output feeds this step.
type PrevNodeInfo struct {
	Name        string `json:"name" yaml:"name" toml:"name"`
	OutputIndex int    `json:"outputIndex" yaml:"outputIndex" toml:"outputIndex"`
	RunIndex    int    `json:"runIndex" yaml:"runIndex" toml:"runIndex"`
}

// Item is one unit of workflow data: structured JSON plus optional named
// binary attachments.
type Item struct {
	JSON   map[string]any         `json:"json" yaml:"json" toml:"json"`
	Binary map[string]*Attachment `json:"binary,omitempty" yaml:"binary,omitempty" toml:"binary,omitempty"`
}

// Attachment is binary data carried alongside an item. Data is base64;
// metadata fields are sniffed at load time when absent.
type Attachment struct {
	Data      string `json:"data,omitempty" yaml:"data,omitempty" toml:"data,omitempty"`
	MimeType  string `json:"mimeType,omitempty" yaml:"mimeType,omitempty" toml:"mimeType,omitempty"`
	FileName  string `json:"fileName,omitempty" yaml:"fileName,omitempty" toml:"fileName,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty" yaml:"fileSize,omitempty" toml:"fileSize,omitempty"`
	Extension string `json:"fileExtension,omitempty" yaml:"fileExtension,omitempty" toml:"fileExtension,omitempty"`
}

// Normalize clamps indices into range, defaults missing item payloads, and
// fills in attachment metadata that can be derived from the data itself.
func (s *Snapshot) Normalize() {
	if s.RunIndex < 0 {
		s.RunIndex = 0
	}
	if s.ItemIndex < 0 {
		s.ItemIndex = 0
	}
	if len(s.Items) > 0 && s.ItemIndex >= len(s.Items) {
		s.ItemIndex = len(s.Items) - 1
	}

	for i := range s.Items {
		if s.Items[i].JSON == nil {
			s.Items[i].JSON = map[string]any{}
		}
		for _, att := range s.Items[i].Binary {
			att.sniff()
		}
	}
}

// CurrentItem returns the item selected by ItemIndex, or nil when the
// snapshot carries no items.
func (s *Snapshot) CurrentItem() *Item {
	if len(s.Items) == 0 {
		return nil
	}
	idx := s.ItemIndex
	if idx < 0 || idx >= len(s.Items) {
		idx = 0
	}
	return &s.Items[idx]
}

// sniff derives mime type, extension, and size from the decoded payload
// for attachments that did not declare them.
func (a *Attachment) sniff() {
	if a == nil || a.Data == "" {
		return
	}
	if a.MimeType != "" && a.FileSize > 0 {
		return
	}

	raw, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		return
	}

	if a.FileSize == 0 {
		a.FileSize = int64(len(raw))
	}
	if a.MimeType == "" {
		detected := mimetype.Detect(raw)
		a.MimeType = detected.String()
		if a.Extension == "" {
			a.Extension = detected.Extension()
		}
	}
}
