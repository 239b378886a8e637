package handlers

import (
	"log"
	"sync"
	"time"

	config "github.com/anjiri1684/teacher_review/configs"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var adminHashOnce sync.Once
var adminHash []byte

// adminPasswordHash hashes the configured admin password once so logins go
// through a constant-time bcrypt comparison.
func adminPasswordHash() []byte {
	adminHashOnce.Do(func() {
		password := config.Config("ADMIN_PASSWORD")
		if password == "" {
			log.Println("Warning: ADMIN_PASSWORD is not set, admin login is disabled")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Error hashing admin password: %v", err)
			return
		}
		adminHash = hash
	})
	return adminHash
}

// Login checks the fixed admin credential pair and returns a signed bearer
// token carrying the admin role.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	hash := adminPasswordHash()
	if hash == nil || req.Username != config.Config("ADMIN_USERNAME") {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid credentials"})
	}

	claims := jwt.MapClaims{
		"username": req.Username,
		"role":     "admin",
		"exp":      time.Now().Add(time.Hour * 72).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString([]byte(config.Config("JWT_SECRET")))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to create token"})
	}

	return c.JSON(fiber.Map{
		"token": t,
		"user":  fiber.Map{"username": req.Username, "role": "admin"},
	})
}
