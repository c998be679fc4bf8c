package domain

// Permission names one guarded operation.
type Permission int

const (
	PermUnknown Permission = iota
	PermFormCreate
	PermFormFindAll
	PermFormFindOne
	PermFormUpdate
	PermFormChangeStatus
	PermFormDelete
	PermFormAddField
	PermFormUpdateFields
	PermFormDuplicate
	PermStoreSave
	PermStoreShow
)

func (p Permission) String() string {
	switch p {
	case PermFormCreate:
		return "form_create"
	case PermFormFindAll:
		return "form_find_all"
	case PermFormFindOne:
		return "form_find_one"
	case PermFormUpdate:
		return "form_update"
	case PermFormChangeStatus:
		return "form_change_status"
	case PermFormDelete:
		return "form_delete"
	case PermFormAddField:
		return "form_add_field"
	case PermFormUpdateFields:
		return "form_update_fields"
	case PermFormDuplicate:
		return "form_duplicate"
	case PermStoreSave:
		return "store_save"
	case PermStoreShow:
		return "store_show"
	default:
		return "unknown"
	}
}

type permissionSet map[Permission]struct{}

func newPermissionSet(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// viewer gets store_show because it belongs to the elevated read set.
var rolePermissions = map[Role]permissionSet{
	RoleAdmin: newPermissionSet(
		PermFormCreate,
		PermFormFindAll,
		PermFormFindOne,
		PermFormUpdate,
		PermFormChangeStatus,
		PermFormDelete,
		PermFormAddField,
		PermFormUpdateFields,
		PermFormDuplicate,
		PermStoreShow,
	),
	RoleSupervisor: newPermissionSet(PermStoreSave, PermStoreShow),
	RoleSampler:    newPermissionSet(PermStoreSave, PermStoreShow),
	RoleViewer:     newPermissionSet(PermStoreShow),
}

// Can reports whether role holds perm.
func (r Role) Can(perm Permission) bool {
	set, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}
