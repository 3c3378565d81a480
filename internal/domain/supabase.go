package domain

// SupabaseClient is the slice of Supabase this service relies on: turning a
// bearer token into the user it was issued for.
type SupabaseClient interface {
	Initialize() error
	ValidateToken(token string) (*SupabaseUser, error)
}
