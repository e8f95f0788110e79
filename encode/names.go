package encode

// Names of table columns. Drivers and generated code bind to tables by these
// names.
const (
	// binary
	KeyOffsets    = "key_offsets"
	SingleLengths = "single_lengths"
	RangeLengths  = "range_lengths"
	// binary and flat
	IndexOffsets = "index_offsets"
	Indices      = "indices"
	TransKeys    = "trans_keys"
	// flat
	KeySpans      = "key_spans"
	IndexDefaults = "index_defaults"
	CharClass     = "char_class"
	// transitions and conditions
	TransCondSpaces = "trans_cond_spaces"
	TransOffsets    = "trans_offsets"
	TransLengths    = "trans_lengths"
	CondKeys        = "cond_keys"
	CondTargs       = "cond_targs"
	CondActions     = "cond_actions"
	// state actions and EOF
	ToStateActions   = "to_state_actions"
	FromStateActions = "from_state_actions"
	EOFActions       = "eof_actions"
	EOFTrans         = "eof_trans"
	EOFCondSpaces    = "eof_cond_spaces"
	EOFCondKeyOffs   = "eof_cond_key_offs"
	EOFCondKeyLens   = "eof_cond_key_lens"
	EOFCondKeys      = "eof_cond_keys"
	Actions          = "actions"
	// NFA
	NFAOffsets     = "nfa_offsets"
	NFATargs       = "nfa_targs"
	NFAPushActions = "nfa_push_actions"
	NFAPopTrans    = "nfa_pop_trans"
)

// withoutIndices is the suffix of transition columns laid out per state
// slot instead of per unique transition.
const withoutIndices = "_wi"
