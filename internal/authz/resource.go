package authz

import "fmt"

// Kind identifies which identifier a ResourceRef carries.
type Kind int

const (
	KindNone Kind = iota
	KindOrganization
	KindClient
	KindProject
	KindTask
)

func (k Kind) String() string {
	switch k {
	case KindOrganization:
		return "organization"
	case KindClient:
		return "client"
	case KindProject:
		return "project"
	case KindTask:
		return "task"
	default:
		return "none"
	}
}

// ResourceRef locates the organization a request acts on. It holds exactly one
// identifier: either the organization itself or a resource owned by it.
type ResourceRef struct {
	Kind Kind
	ID   uint64
}

func OrganizationRef(id uint64) ResourceRef { return ResourceRef{Kind: KindOrganization, ID: id} }
func ClientRef(id uint64) ResourceRef       { return ResourceRef{Kind: KindClient, ID: id} }
func ProjectRef(id uint64) ResourceRef      { return ResourceRef{Kind: KindProject, ID: id} }
func TaskRef(id uint64) ResourceRef         { return ResourceRef{Kind: KindTask, ID: id} }

// NoContext is a ref that resolves to nothing.
var NoContext = ResourceRef{}

// IsZero reports whether the ref carries no usable identifier.
func (r ResourceRef) IsZero() bool {
	return r.Kind == KindNone || r.ID == 0
}

func (r ResourceRef) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}
