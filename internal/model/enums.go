package model

type AccountRole string

const (
	AccountRoleOwner        AccountRole = "owner"
	AccountRoleCollaborator AccountRole = "collaborator"
)

func (r AccountRole) Valid() bool {
	return r == AccountRoleOwner || r == AccountRoleCollaborator
}

type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

type NotificationKind string

const (
	NotificationGrantCompleted   NotificationKind = "grant_completed"
	NotificationGrantFailed      NotificationKind = "grant_failed"
	NotificationPublishCompleted NotificationKind = "publish_completed"
	NotificationPublishFailed    NotificationKind = "publish_failed"
)
