package storage

import "github.com/amlakhq/amlak/internal/rbac"

// Bucket describes a managed bucket plus the default permission triple
// handlers apply when no explicit requirement is configured.
type Bucket struct {
	Name   string          `json:"name"`
	Public bool            `json:"public"`
	Read   rbac.Permission `json:"read"`
	Write  rbac.Permission `json:"write"`
	Delete rbac.Permission `json:"delete"`
}

// Managed bucket names.
const (
	BucketPropertyImages    = "property-images"
	BucketPropertyDocuments = "property-documents"
	BucketClientFiles       = "client-files"
	BucketAdminFiles        = "admin-files"
)

var bucketCatalog = map[string]Bucket{
	BucketPropertyImages: {
		Name:   BucketPropertyImages,
		Public: true,
		Read:   rbac.PermPropertiesRead,
		Write:  rbac.PermPropertiesUpdate,
		Delete: rbac.PermPropertiesDelete,
	},
	BucketPropertyDocuments: {
		Name:   BucketPropertyDocuments,
		Read:   rbac.PermPropertiesRead,
		Write:  rbac.PermPropertiesUpdate,
		Delete: rbac.PermPropertiesDelete,
	},
	BucketClientFiles: {
		Name:   BucketClientFiles,
		Read:   rbac.PermClientsRead,
		Write:  rbac.PermClientsUpdate,
		Delete: rbac.PermClientsDelete,
	},
	BucketAdminFiles: {
		Name:   BucketAdminFiles,
		Read:   rbac.PermSystemSettings,
		Write:  rbac.PermSystemSettings,
		Delete: rbac.PermSystemSettings,
	},
}

// BucketInfo looks up a managed bucket by name.
func BucketInfo(name string) (Bucket, bool) {
	b, ok := bucketCatalog[name]
	return b, ok
}

// Buckets returns the managed bucket catalog.
func Buckets() []Bucket {
	out := make([]Bucket, 0, len(bucketCatalog))
	for _, name := range []string{BucketPropertyImages, BucketPropertyDocuments, BucketClientFiles, BucketAdminFiles} {
		out = append(out, bucketCatalog[name])
	}
	return out
}
