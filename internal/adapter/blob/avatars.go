package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azblobBlob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/sirupsen/logrus"
)

// AvatarStore writes avatars to a public Azure Blob container
type AvatarStore struct {
	client        *azblob.Client
	containerName string
	publicBaseURL string
	logger        *logrus.Logger
}

// NewAvatarStore creates a new avatar store authenticated with the default
// Azure credential chain. Objects are served from publicBaseURL when set,
// otherwise from the container URL.
func NewAvatarStore(ctx context.Context, accountName, containerName, publicBaseURL string, logger *logrus.Logger) (*AvatarStore, error) {
	if accountName == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure blob client: %w", err)
	}

	if publicBaseURL == "" {
		publicBaseURL = serviceURL + containerName
	}

	store := &AvatarStore{
		client:        client,
		containerName: containerName,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}

	if err := store.ensureContainer(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure container exists: %w", err)
	}

	return store, nil
}

// ensureContainer creates the container with anonymous blob reads, or opens
// an existing one up to that level, so the URLs handed to clients resolve
func (s *AvatarStore) ensureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.containerName, containerOptions())
	if err == nil {
		s.logger.Infof("Created container %s", s.containerName)
		return nil
	}
	if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container: %w", err)
	}

	s.logger.Debugf("Container %s already exists", s.containerName)

	_, err = s.client.ServiceClient().NewContainerClient(s.containerName).SetAccessPolicy(ctx, accessPolicyOptions())
	if err != nil {
		return fmt.Errorf("failed to set public access on container: %w", err)
	}
	return nil
}

func containerOptions() *azblob.CreateContainerOptions {
	access := azblob.PublicAccessTypeBlob
	return &azblob.CreateContainerOptions{Access: &access}
}

func accessPolicyOptions() *container.SetAccessPolicyOptions {
	access := container.PublicAccessTypeBlob
	return &container.SetAccessPolicyOptions{Access: &access}
}

// Put uploads data to path, overwriting any existing blob, and returns its
// public URL
func (s *AvatarStore) Put(ctx context.Context, path, contentType string, data []byte) (string, error) {
	_, err := s.client.UploadBuffer(ctx, s.containerName, path, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &azblobBlob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s: %w", path, err)
	}

	return PublicURL(s.publicBaseURL, path), nil
}

// PublicURL joins base and an object path, escaping each path segment
func PublicURL(base, path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}
