package engine

// User-facing notification texts. The transport glue references these too,
// so wording lives in one place.
const (
	MsgWelcome           = "Welcome. Tap 🔄 Next to find a stranger.\nTap ❌ Stop to end chat."
	MsgNeedInvite        = "You need an invite code to use this bot. Send /join <code>."
	MsgJoined            = "Access granted. Use /next to find a stranger."
	MsgAlreadyAuthorized = "You already have access. Use /next to find a stranger."
	MsgInvalidCode       = "That invite code is not valid."
	MsgSearching         = "Searching for a stranger..."
	MsgConnected         = "You are now connected to a stranger."
	MsgPartnerLeft       = "Stranger left the chat."
	MsgChatStopped       = "Chat stopped."
	MsgUseNext           = "Use /next to find a stranger."
	MsgReportConfirmed   = "Report received. The chat has ended."
	MsgBlockConfirmed    = "Stranger blocked. You will not be matched with them again."
	MsgSlowDown          = "Slow down. You are sending messages too quickly."
)
