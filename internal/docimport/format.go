package docimport

// FormatGuide describes the document layout Extract understands.
type FormatGuide struct {
	Rules   []string `json:"rules"`
	Example string   `json:"example"`
	Columns []string `json:"spreadsheet_columns"`
}

const exampleDocument = `1. What is the capital of France?
A. London
B. Paris
C. Berlin
Correct Answer: B
Explanation: Paris is the capital city of France.

2. Which planet is known as the Red Planet?
A. Earth
B. Mars
C. Jupiter
Correct Answer: B`

func Guide() FormatGuide {
	return FormatGuide{
		Rules: []string{
			"Each question block must be separated by one empty line.",
			`Start each question with its number and a period, e.g. "1.".`,
			`Put every answer option on its own line, starting with an uppercase letter and a period, e.g. "A.", "B.".`,
			`Mark the correct answer with a line starting with "Correct Answer:" followed by the option letter, e.g. "Correct Answer: B".`,
			`Optionally add an explanation on a line starting with "Explanation:".`,
		},
		Example: exampleDocument,
		Columns: SheetColumns,
	}
}
