package apperr

var (
	// Domain errors shared by the messaging and notification services.
	ErrUserNotFound         = NotFound("user not found")
	ErrReceiverNotFound     = NotFound("receiver not found")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrNotificationNotFound = NotFound("notification not found")
	ErrNotParticipant       = Forbidden("you are not a participant of this conversation")
	ErrAdminOnly            = Forbidden("admin access required")
	ErrSelfMessage          = InvalidArg("cannot send a message to yourself")
	ErrEmptyMessage         = InvalidArg("message content is required")
	ErrSamePair             = InvalidArg("a conversation needs two distinct users")
	ErrInvalidNotifType     = InvalidArg("unknown notification type")
)
