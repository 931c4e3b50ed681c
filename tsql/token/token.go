// Package token defines the lexical tokens of the supported T-SQL subset.
package token

// Type represents the type of a token.
type Type int

const (
	// Special
	Illegal Type = iota
	EOF
	Comment

	// Literals
	Ident         // Visits, dbo
	BracketIdent  // [Visit Date]
	QuotedIdent   // "Visits" (QUOTED_IDENTIFIER style)
	Variable      // @StartDate
	String        // 'text'
	NationalString // N'text'
	Number        // 42, 3.14

	// Operators
	Plus     // +
	Minus    // -
	Star     // *
	Slash    // /
	Percent  // %
	Eq       // =
	NotEq    // <> or !=
	Lt       // <
	Gt       // >
	LtEq     // <=
	GtEq     // >=

	// Delimiters
	Comma     // ,
	Dot       // .
	Semicolon // ;
	LParen    // (
	RParen    // )

	// Keywords
	Select
	From
	Where
	As
	On
	Join
	Inner
	Left
	Right
	Full
	Outer
	Cross
	Group
	By
	Having
	Order
	Asc
	Desc
	Top
	PercentKw
	With
	Ties
	Distinct
	All
	And
	Or
	Not
	Case
	When
	Then
	Else
	End
	Cast
	Convert
	Between
	In
	Is
	Null
	Like
	Escape
	Exists
	Union
	Except
	Intersect
	Create
	Alter
	View
	Go
	Schemabinding
)

// Token represents a lexical token with its source position.
type Token struct {
	Type    Type
	Literal string
	// Pos and EndPos are byte offsets into the input, used for spans.
	Pos    int
	EndPos int
	Line   int
	Column int
}

var keywords = map[string]Type{
	"select":        Select,
	"from":          From,
	"where":         Where,
	"as":            As,
	"on":            On,
	"join":          Join,
	"inner":         Inner,
	"left":          Left,
	"right":         Right,
	"full":          Full,
	"outer":         Outer,
	"cross":         Cross,
	"group":         Group,
	"by":            By,
	"having":        Having,
	"order":         Order,
	"asc":           Asc,
	"desc":          Desc,
	"top":           Top,
	"percent":       PercentKw,
	"with":          With,
	"ties":          Ties,
	"distinct":      Distinct,
	"all":           All,
	"and":           And,
	"or":            Or,
	"not":           Not,
	"case":          Case,
	"when":          When,
	"then":          Then,
	"else":          Else,
	"end":           End,
	"cast":          Cast,
	"convert":       Convert,
	"between":       Between,
	"in":            In,
	"is":            Is,
	"null":          Null,
	"like":          Like,
	"escape":        Escape,
	"exists":        Exists,
	"union":         Union,
	"except":        Except,
	"intersect":     Intersect,
	"create":        Create,
	"alter":         Alter,
	"view":          View,
	"go":            Go,
	"schemabinding": Schemabinding,
}

// LookupIdent returns the keyword type for an identifier, or Ident if it is
// not a keyword. T-SQL keywords are case-insensitive.
func LookupIdent(lowered string) Type {
	if t, ok := keywords[lowered]; ok {
		return t
	}
	return Ident
}

var names = map[Type]string{
	Illegal:        "ILLEGAL",
	EOF:            "EOF",
	Comment:        "COMMENT",
	Ident:          "IDENT",
	BracketIdent:   "BRACKET_IDENT",
	QuotedIdent:    "QUOTED_IDENT",
	Variable:       "VARIABLE",
	String:         "STRING",
	NationalString: "NSTRING",
	Number:         "NUMBER",
	Plus:           "+",
	Minus:          "-",
	Star:           "*",
	Slash:          "/",
	Percent:        "%",
	Eq:             "=",
	NotEq:          "<>",
	Lt:             "<",
	Gt:             ">",
	LtEq:           "<=",
	GtEq:           ">=",
	Comma:          ",",
	Dot:            ".",
	Semicolon:      ";",
	LParen:         "(",
	RParen:         ")",
}

// String returns a readable name for the token type.
func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	for kw, typ := range keywords {
		if typ == t {
			return kw
		}
	}
	return "UNKNOWN"
}

// IsKeyword reports whether the type is a reserved keyword.
func (t Type) IsKeyword() bool {
	return t >= Select
}
