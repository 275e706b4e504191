package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"

	"github.com/museum-staffing/shift-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var firstNames = []string{
	"Ana", "Ivan", "Marko", "Petra", "Luka", "Maja", "Josip", "Iva",
	"Tomislav", "Lucija", "Ante", "Katarina", "Filip", "Nina", "Karlo", "Sara",
	"Matej", "Ema", "Domagoj", "Lana",
}

var lastNames = []string{
	"Horvat", "Kovačević", "Babić", "Marić", "Jurić", "Novak", "Knežević", "Vuković",
	"Marković", "Petrović", "Matić", "Tomić", "Pavlović", "Božić", "Grgić", "Šarić",
}

func GenerateRandomName() (string, string) {
	return firstNames[rand.Intn(len(firstNames))], lastNames[rand.Intn(len(lastNames))]
}

var asciiFold = strings.NewReplacer(
	"č", "c", "ć", "c", "š", "s", "ž", "z", "đ", "d",
	"Č", "C", "Ć", "C", "Š", "S", "Ž", "Z", "Đ", "D",
)

var digits = "0123456789"

// GenerateUsername builds "<first initial><last name><digits>" in lower-case ASCII.
func GenerateUsername(firstName, lastName string) string {
	initial, _ := utf8.DecodeRuneInString(firstName)
	base := asciiFold.Replace(strings.ToLower(string(initial) + lastName))

	var b strings.Builder
	b.WriteString(base)
	for range rand.Intn(3) + 1 {
		b.WriteByte(digits[rand.Intn(len(digits))])
	}
	return b.String()
}

func GenerateRandomGuard(password string, emailDomainName string) (*domain.User, error) {
	firstName, lastName := GenerateRandomName()
	username := GenerateUsername(firstName, lastName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(passwordHash),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        username + "@" + emailDomainName,
		Role:         domain.RoleGuard,
		IsActive:     true,
	}

	return user, nil
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	randomPassword := make([]rune, length)
	for i := range randomPassword {
		randomPassword[i] = letters[rand.Intn(len(letters))]
	}
	return string(randomPassword)
}

// GenerateRandomPeriods picks n distinct (weekday, shift) pairs out of the workdays.
func GenerateRandomPeriods(workdays []int, n int) []domain.PeriodKey {
	all := make([]domain.PeriodKey, 0, len(workdays)*2)
	for _, d := range workdays {
		all = append(all, domain.PeriodKey{Day: d, Shift: domain.ShiftMorning}, domain.PeriodKey{Day: d, Shift: domain.ShiftAfternoon})
	}

	// Fisher-Yates
	for i := len(all) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		all[i], all[j] = all[j], all[i]
	}

	return all[:min(n, len(all))]
}

func GenerateRandomExhibitionName() string {
	adjectives := []string{"Ancient", "Modern", "Hidden", "Golden", "Forgotten", "Northern", "Coastal"}
	nouns := []string{"Mosaics", "Maps", "Portraits", "Ceramics", "Textiles", "Instruments", "Coins"}
	return fmt.Sprintf("%s %s", adjectives[rand.Intn(len(adjectives))], nouns[rand.Intn(len(nouns))])
}
