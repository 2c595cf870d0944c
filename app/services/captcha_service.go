// Package services contains external service integrations for the upstream SMS site
package services

import (
	"regexp"
	"strconv"
)

// DefaultCaptchaAnswer is submitted when the question cannot be parsed. The
// upstream site rotates a handful of fixed questions and this answer matches
// the most common one.
const DefaultCaptchaAnswer = "10"

var captchaPattern = regexp.MustCompile(`(\d+)\s*([+\-*/])\s*(\d+)`)

// SolveMathCaptcha answers the login page's arithmetic question, e.g.
// "What is 3 + 7 = ?". Unparseable questions and division by zero fall back
// to DefaultCaptchaAnswer.
func SolveMathCaptcha(question string) string {
	m := captchaPattern.FindStringSubmatch(question)
	if m == nil {
		return DefaultCaptchaAnswer
	}

	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[3])

	var result int
	switch m[2] {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			return DefaultCaptchaAnswer
		}
		result = a / b
	default:
		return DefaultCaptchaAnswer
	}
	return strconv.Itoa(result)
}
