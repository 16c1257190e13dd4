package api

import (
	"github.com/ssargent/wiredto/pkg/codec"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind       string
	Port       int
	APIKey     string
	MaxPayload int          // Largest request body accepted, in bytes
	Limits     codec.Limits // Ceiling applied when validating bodies
}

// FieldInfo describes one schema field.
type FieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Variable bool   `json:"variable"`
	Position int    `json:"position"`
}

// TypeInfo describes a registered wire type.
type TypeInfo struct {
	Name           string      `json:"name"`
	FixedBlockSize int         `json:"fixed_block_size"`
	MaskWidth      int         `json:"mask_width"`
	MaxSize        int         `json:"max_size"`
	FixedSize      bool        `json:"fixed_size"`
	Fields         []FieldInfo `json:"fields"`
}

// ValidateResponse is the result of a structural check.
type ValidateResponse struct {
	Type          string `json:"type"`
	OK            bool   `json:"ok"`
	Kind          string `json:"kind,omitempty"`
	Reason        string `json:"reason,omitempty"`
	BytesConsumed int    `json:"bytes_consumed,omitempty"`
	Trailing      int    `json:"trailing_bytes,omitempty"`
}

// DecodeResponse carries a decoded value.
type DecodeResponse struct {
	Type          string      `json:"type"`
	BytesConsumed int         `json:"bytes_consumed"`
	Canonical     bool        `json:"canonical"` // re-encoding reproduced the input
	Value         interface{} `json:"value"`
}

// CorpusEntryResponse describes a stored corpus entry.
type CorpusEntryResponse struct {
	ID      string      `json:"id"`
	Type    string      `json:"type"`
	Size    int         `json:"size"`
	Payload []byte      `json:"payload,omitempty"`
	Value   interface{} `json:"value,omitempty"`
}

// JournalAppendResponse reports where a payload was journaled.
type JournalAppendResponse struct {
	Type   string `json:"type"`
	Offset int64  `json:"offset"`
	Size   int    `json:"size"`
}

// TypeInfoFor describes schema s.
func TypeInfoFor(s *codec.Schema) TypeInfo {
	_, fixed := s.FixedSize()
	info := TypeInfo{
		Name:           s.Name(),
		FixedBlockSize: s.FixedBlockSize(),
		MaskWidth:      s.MaskWidth(),
		MaxSize:        s.MaxSize(),
		FixedSize:      fixed,
	}
	for _, fd := range s.Fields() {
		info.Fields = append(info.Fields, FieldInfo{
			Name:     fd.Name,
			Type:     fd.Type.TypeName(),
			Nullable: fd.Nullable,
			Variable: fd.Variable,
			Position: fd.Pos,
		})
	}
	return info
}
