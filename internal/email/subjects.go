package email

const (
	subjectWelcome = "Welcome to the DIM Dashboard"
)
