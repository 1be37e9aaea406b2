// Package questionnaire implements the PHQ-9 screening dialogue: the fixed question bank, answer scoring, the safety
// interrupt, and the session state machine that drives one conversation through the nine questions.
package questionnaire

import "strconv"

// questions is the PHQ-9 question bank in administration order.
var questions = [...]string{
	"Over the last 2 weeks, how often have you had little interest or pleasure in doing things?",
	"Over the last 2 weeks, how often have you been feeling down, depressed, or hopeless?",
	"Over the last 2 weeks, how often have you had trouble falling or staying asleep, or sleeping too much?",
	"Over the last 2 weeks, how often have you felt tired or had little energy?",
	"Over the last 2 weeks, how often have you had poor appetite or been overeating?",
	"Over the last 2 weeks, how often have you felt bad about yourself — or that you are a failure or have let " +
		"yourself or your family down?",
	"Over the last 2 weeks, how often have you had trouble concentrating on things, such as reading or watching TV?",
	"Over the last 2 weeks, how often have you been moving or speaking so slowly that other people could have " +
		"noticed? Or the opposite — being so fidgety or restless that you’ve been moving around a lot more than usual?",
	"Over the last 2 weeks, how often have you had thoughts that you would be better off dead or of hurting " +
		"yourself in some way?",
}

// QuestionCount is the number of questions in the bank.
const QuestionCount = len(questions)

// Question returns the question at the 0-based position i. It panics if i is out of range.
func Question(i int) string {
	return questions[i]
}

// Questions returns a copy of the question bank.
func Questions() []string {
	out := make([]string, QuestionCount)
	copy(out, questions[:])
	return out
}

// Prompt formats the question at position i the way it is presented to the user, numbered from 1.
func Prompt(i int) string {
	return strconv.Itoa(i+1) + ". " + questions[i]
}
