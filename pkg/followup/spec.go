package followup

// Kind names the shape of a follow-up question.
type Kind string

const (
	KindBinary Kind = "binary"
	KindChoice Kind = "choice"
	KindOpen   Kind = "open"
)

// Spec is a scripted follow-up question and the rules for resolving a reply
// to it. Implementations are Binary, Choice and Open.
type Spec interface {
	Question() string
	Kind() Kind
}

// Binary is a yes/no question.
type Binary struct {
	Prompt      string
	YesResponse string
	NoResponse  string
}

func (b Binary) Question() string { return b.Prompt }
func (b Binary) Kind() Kind       { return KindBinary }

// Branch is one labelled answer of a Choice. Tokens are matched as
// substrings of the normalized reply.
type Branch struct {
	Label    string
	Tokens   []string
	Response string
}

// Choice asks the user to pick one of a few fixed categories. Branches are
// tried in order.
type Choice struct {
	Prompt   string
	Branches []Branch
}

func (c Choice) Question() string { return c.Prompt }
func (c Choice) Kind() Kind       { return KindChoice }

// Topic maps a keyword found in the reply to a canned paragraph.
type Topic struct {
	Keyword  string
	Response string
}

// Open is a free-form question resolved by scanning for topic keywords.
type Open struct {
	Prompt   string
	Topics   []Topic
	Fallback string
}

func (o Open) Question() string { return o.Prompt }
func (o Open) Kind() Kind       { return KindOpen }
