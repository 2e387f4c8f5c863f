package domain

// ACL is the access policy applied to an uploaded object. Values follow the
// underscore spelling; backends translate them into their own vocabulary.
type ACL string

const (
	ACLPrivate                ACL = "private"
	ACLPublicRead             ACL = "public_read"
	ACLPublicReadWrite        ACL = "public_read_write"
	ACLAuthenticatedRead      ACL = "authenticated_read"
	ACLBucketOwnerRead        ACL = "bucket_owner_read"
	ACLBucketOwnerFullControl ACL = "bucket_owner_full_control"
)

// ValidACLs lists every ACL accepted in definition files.
var ValidACLs = map[ACL]struct{}{
	ACLPrivate:                {},
	ACLPublicRead:             {},
	ACLPublicReadWrite:        {},
	ACLAuthenticatedRead:      {},
	ACLBucketOwnerRead:        {},
	ACLBucketOwnerFullControl: {},
}

// VersionOriginal is the implicit version of a definition that declares none.
const VersionOriginal = "original"

// AttachmentStatus represents the lifecycle of a persisted attachment record.
type AttachmentStatus string

const (
	AttachmentStatusStored  AttachmentStatus = "stored"
	AttachmentStatusFailed  AttachmentStatus = "failed"
	AttachmentStatusDeleted AttachmentStatus = "deleted"
)
