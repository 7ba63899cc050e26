package models

// OracleAuthor - автор сообщения в диалоге с Оракулом.
type OracleAuthor string

const (
	OracleAuthorUser   OracleAuthor = "user"
	OracleAuthorOracle OracleAuthor = "oracle"
)

// OracleMessage - одно сообщение диалога. Лог append-only,
// очищается только полным сбросом сессии.
type OracleMessage struct {
	Author OracleAuthor `json:"author"`
	Text   string       `json:"text"`
}
