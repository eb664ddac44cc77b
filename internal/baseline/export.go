package baseline

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Neizinp/tracyfy-sub003/internal/artifact"
)

// Pack format:
// [4 bytes: header length (big-endian)]
// [header JSON: PackHeader]
// [file data...]
//
// The header describes each artifact's path, pinned commit, revision,
// offset (relative to data start), and length. File contents follow
// immediately after the header, in header entry order.

const (
	headerLengthSize = 4
	maxHeaderSize    = 10 * 1024 * 1024
)

// PackEntry describes one artifact file inside an export pack.
type PackEntry struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Commit   string `json:"commit"`
	Revision string `json:"revision"`
	Offset   int64  `json:"offset"`
	Length   int64  `json:"length"`
}

// PackHeader indexes a baseline export pack.
type PackHeader struct {
	BaselineID string      `json:"baselineId"`
	Project    string      `json:"project"`
	Label      string      `json:"label"`
	CreatedAt  time.Time   `json:"createdAt"`
	Entries    []PackEntry `json:"entries"`
}

// Export builds a zstd-compressed pack holding every artifact's content as
// pinned by the baseline. Entries are ordered by artifact ID, so identical
// baselines produce identical packs.
func (m *Manager) Export(b *Baseline) ([]byte, error) {
	ids := make([]string, 0, len(b.Artifacts))
	for id := range b.Artifacts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	header := PackHeader{
		BaselineID: b.ID,
		Project:    b.Project,
		Label:      b.Label,
		CreatedAt:  b.CreatedAt,
	}
	var data bytes.Buffer
	for _, id := range ids {
		pin := b.Artifacts[id]
		content, err := m.repo.ReadFileAtCommit(pin.Commit, pin.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s at %s: %w", pin.Path, pin.Commit, err)
		}
		header.Entries = append(header.Entries, PackEntry{
			ID:       id,
			Path:     pin.Path,
			Commit:   pin.Commit,
			Revision: artifact.ParseRevision(content),
			Offset:   int64(data.Len()),
			Length:   int64(len(content)),
		})
		data.Write(content)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshaling pack header: %w", err)
	}

	var pack bytes.Buffer
	headerLen := make([]byte, headerLengthSize)
	binary.BigEndian.PutUint32(headerLen, uint32(len(headerJSON)))
	pack.Write(headerLen)
	pack.Write(headerJSON)
	pack.Write(data.Bytes())

	var compressed bytes.Buffer
	encoder, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := encoder.Write(pack.Bytes()); err != nil {
		encoder.Close()
		return nil, fmt.Errorf("compressing pack: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}
	return compressed.Bytes(), nil
}

// ReadPack decompresses a pack and returns its header along with each
// artifact's content keyed by ID. Offsets and lengths are validated
// against the data section.
func ReadPack(r io.Reader) (*PackHeader, map[string][]byte, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer decoder.Close()

	decompressed, err := io.ReadAll(decoder)
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing pack: %w", err)
	}
	if len(decompressed) < headerLengthSize {
		return nil, nil, fmt.Errorf("pack too small: %d bytes", len(decompressed))
	}

	headerLen := binary.BigEndian.Uint32(decompressed[:headerLengthSize])
	if headerLen > maxHeaderSize {
		return nil, nil, fmt.Errorf("header too large: %d bytes", headerLen)
	}
	if int(headerLengthSize+headerLen) > len(decompressed) {
		return nil, nil, fmt.Errorf("header length exceeds pack size")
	}

	var header PackHeader
	if err := json.Unmarshal(decompressed[headerLengthSize:headerLengthSize+headerLen], &header); err != nil {
		return nil, nil, fmt.Errorf("parsing pack header: %w", err)
	}

	data := decompressed[headerLengthSize+headerLen:]
	contents := make(map[string][]byte, len(header.Entries))
	for _, entry := range header.Entries {
		if entry.Offset < 0 || entry.Length < 0 || entry.Length > int64(len(data))-entry.Offset {
			return nil, nil, fmt.Errorf("entry %s extends beyond pack data", entry.ID)
		}
		contents[entry.ID] = data[entry.Offset : entry.Offset+entry.Length]
	}
	return &header, contents, nil
}
