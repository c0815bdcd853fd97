package gov

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/BOCK-CHAIN/BallotChain/types"
	shell "github.com/ipfs/go-ipfs-api"
)

// ProposalMetadata is the optional rich content attached to a proposal:
// everything beyond the on-chain title and description lives off-chain.
type ProposalMetadata struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Details     string              `json:"details,omitempty"`
	Documents   []DocumentReference `json:"documents,omitempty"`
	Links       []LinkReference     `json:"links,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
	CreatedAt   int64               `json:"created_at"`
	Checksum    string              `json:"checksum"`
}

// DocumentReference points at a document stored on IPFS.
type DocumentReference struct {
	Name     string `json:"name"`
	CID      string `json:"cid"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type,omitempty"`
}

// LinkReference is an external link attached to a proposal.
type LinkReference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// MetadataClient stores and retrieves proposal metadata on IPFS. The hash
// recorded on-chain is the SHA-256 of the serialized document, so content
// integrity is checkable independent of the IPFS addressing scheme; the
// client keeps the content-hash to CID mapping.
type MetadataClient struct {
	shell   *shell.Shell
	timeout time.Duration

	lock sync.RWMutex
	cids map[types.Hash]string
}

func NewMetadataClient(nodeURL string) *MetadataClient {
	if nodeURL == "" {
		nodeURL = "localhost:5001"
	}

	return &MetadataClient{
		shell:   shell.NewShell(nodeURL),
		timeout: 30 * time.Second,
		cids:    make(map[types.Hash]string),
	}
}

// Upload serializes the metadata, stamps its checksum, pins it and returns
// the content hash to record on the proposal.
func (c *MetadataClient) Upload(metadata *ProposalMetadata) (types.Hash, error) {
	if metadata.CreatedAt == 0 {
		metadata.CreatedAt = time.Now().Unix()
	}

	metadata.Checksum = ""
	body, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return types.Hash{}, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	digest := sha256.Sum256(body)
	metadata.Checksum = hex.EncodeToString(digest[:])

	body, err = json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return types.Hash{}, fmt.Errorf("failed to marshal metadata with checksum: %w", err)
	}

	cid, err := c.shell.Add(bytes.NewReader(body))
	if err != nil {
		return types.Hash{}, fmt.Errorf("failed to upload to IPFS: %w", err)
	}

	if err := c.shell.Pin(cid); err != nil {
		return types.Hash{}, fmt.Errorf("failed to pin metadata: %w", err)
	}

	contentHash := types.Hash(sha256.Sum256(body))

	c.lock.Lock()
	c.cids[contentHash] = cid
	c.lock.Unlock()

	return contentHash, nil
}

// Retrieve fetches and verifies the metadata recorded at a content hash.
func (c *MetadataClient) Retrieve(contentHash types.Hash) (*ProposalMetadata, error) {
	cid, ok := c.cid(contentHash)
	if !ok {
		return nil, fmt.Errorf("no CID known for content hash %s", contentHash)
	}

	reader, err := c.shell.Cat(cid)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve from IPFS: %w", err)
	}
	defer reader.Close()

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read IPFS data: %w", err)
	}

	if got := types.Hash(sha256.Sum256(body)); got != contentHash {
		return nil, fmt.Errorf("metadata content hash mismatch: expected %s, got %s", contentHash, got)
	}

	var metadata ProposalMetadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return &metadata, nil
}

// UploadDocument stores a supporting document and returns its reference.
func (c *MetadataClient) UploadDocument(name string, data []byte, mimeType string) (*DocumentReference, error) {
	cid, err := c.shell.Add(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to upload document to IPFS: %w", err)
	}

	return &DocumentReference{
		Name:     name,
		CID:      cid,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// RetrieveDocument fetches a document and checks its recorded size.
func (c *MetadataClient) RetrieveDocument(ref *DocumentReference) ([]byte, error) {
	reader, err := c.shell.Cat(ref.CID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve document from IPFS: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read document data: %w", err)
	}

	if ref.Size > 0 && int64(len(data)) != ref.Size {
		return nil, fmt.Errorf("document size mismatch: expected %d, got %d", ref.Size, len(data))
	}

	return data, nil
}

// Exists reports whether the content behind a hash is still reachable.
func (c *MetadataClient) Exists(contentHash types.Hash) (bool, error) {
	cid, ok := c.cid(contentHash)
	if !ok {
		return false, nil
	}

	if _, err := c.shell.ObjectStat(cid); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify content existence: %w", err)
	}

	return true, nil
}

// Unpin releases the content behind a hash for garbage collection.
func (c *MetadataClient) Unpin(contentHash types.Hash) error {
	cid, ok := c.cid(contentHash)
	if !ok {
		return fmt.Errorf("no CID known for content hash %s", contentHash)
	}

	return c.shell.Unpin(cid)
}

func (c *MetadataClient) cid(contentHash types.Hash) (string, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	cid, ok := c.cids[contentHash]
	return cid, ok
}
