// Package useradmin implements the interactive user administration console
// used to provision accounts and reset passwords.
package useradmin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vculp/identity-server/internal/domain"
	apperrors "github.com/vculp/identity-server/internal/domain/errors"
)

const defaultGreeting = "Please select from one of the following options."

// ErrEmptyPassword is returned when no password was entered
var ErrEmptyPassword = errors.New("password cannot be empty")

// UserAdmin is the membership surface the console drives
type UserAdmin interface {
	CreateUser(ctx context.Context, req domain.CreateUserRequest, password string) (*domain.User, error)
	FindByName(ctx context.Context, userName string) (*domain.User, error)
	ResetPassword(ctx context.Context, userName, newPassword string) error
}

// SecretReader reads a password without echoing it
type SecretReader func() (string, error)

// Console runs the menu over a reader and writer
type Console struct {
	in         *bufio.Reader
	out        io.Writer
	readSecret SecretReader
	users      UserAdmin
	validate   *validator.Validate
}

// NewConsole creates a console. A nil readSecret reads passwords as plain
// lines from in.
func NewConsole(in io.Reader, out io.Writer, readSecret SecretReader, users UserAdmin) *Console {
	c := &Console{
		in:       bufio.NewReader(in),
		out:      out,
		users:    users,
		validate: validator.New(),
	}
	if readSecret == nil {
		readSecret = c.readLine
	}
	c.readSecret = readSecret
	return c
}

// Run shows the menu until the user exits or input ends
func (c *Console) Run(ctx context.Context) error {
	greeting := defaultGreeting
	for {
		c.println()
		c.println(greeting)
		c.println()
		c.println("  1) Create a new user")
		c.println("  2) Change a users password")
		c.println("  3) Exit")
		c.println()
		c.print("Selected option: ")

		option, err := c.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var msg string
		switch option {
		case "1":
			msg, err = c.createInteractive(ctx)
		case "2":
			msg, err = c.resetInteractive(ctx)
		case "3":
			c.println()
			c.println("The application will now exit.")
			return nil
		default:
			msg = fmt.Sprintf("%s is not a valid option. Please try again.", option)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			msg = err.Error()
		}

		greeting = msg
		if strings.TrimSpace(greeting) == "" {
			greeting = defaultGreeting
		}
	}
}

func (c *Console) createInteractive(ctx context.Context) (string, error) {
	c.println()
	c.println("What type of user would you like to create?")
	c.println()
	c.println("  1) Admin")
	c.println("  2) Standard User")
	c.println()
	c.print("Selected option: ")

	option, err := c.readLine()
	if err != nil {
		return "", err
	}

	req := domain.CreateUserRequest{}
	switch option {
	case "1":
		req.Type = domain.UserTypeAdmin
	case "2":
		req.Type = domain.UserTypeStandard
	default:
		return fmt.Sprintf("%s is not a valid user type. Please try again.", option), nil
	}

	c.println()
	c.print("Please enter the email address for the user: ")
	if req.Email, err = c.readLine(); err != nil {
		return "", err
	}
	if req.Email == "" {
		return "Invalid email address. The email address cannot be empty. Please try again.", nil
	}
	if c.validate.Var(req.Email, "email") != nil {
		return fmt.Sprintf("%s is not a valid email address. Please try again.", req.Email), nil
	}
	if _, err := c.users.FindByName(ctx, req.Email); err == nil {
		return fmt.Sprintf("A user already exists with email address %s. Please try again.", req.Email), nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return "", err
	}

	c.println()
	c.print("Please enter the name of the user: ")
	if req.Name, err = c.readLine(); err != nil {
		return "", err
	}
	if req.Name == "" {
		return "Invalid name. The name of the user cannot be empty. Please try again.", nil
	}

	if req.Type == domain.UserTypeAdmin {
		c.println()
		c.println(fmt.Sprintf("Enter the Id for the %s. You must retrieve this from the Vculp database.", req.Type))
		raw, err := c.readLine()
		if err != nil {
			return "", err
		}
		externalID, err := uuid.Parse(raw)
		if err != nil {
			return "Invalid Id. The id is expected to be a guid. Please try again.", nil
		}
		req.ExternalUserID = &externalID
	}

	if _, err := c.Create(ctx, req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", err
		}
		return CreateFailureMessage(req.Email, err), nil
	}

	c.println()
	c.print("Press enter to continue")
	if _, err := c.readLine(); err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return "", nil
}

// Create asks for the new user's password, creates the user and prints the
// follow-up notice.
func (c *Console) Create(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	c.println()
	c.print("Please enter a password for the user: ")
	pw, err := c.readSecret()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(pw) == "" {
		return nil, ErrEmptyPassword
	}

	user, err := c.users.CreateUser(ctx, req, pw)
	if err != nil {
		return nil, err
	}

	c.println(fmt.Sprintf("User %s created successfully.", req.Email))
	c.println()
	c.println("*******IMPORTANT******")
	c.println()
	c.println(fmt.Sprintf("YOU MUST MANUALLY ADD THE NEW USER TO THE [Rbac].[Users] TABLE IN THE Vculp DATABASE. WHEN DOING SO YOU MUST SET THE [ExternalUserId] TO: %s", user.ID))
	c.println()
	c.println("*********************")
	return user, nil
}

// CreateFailureMessage is the text shown when creating email failed
func CreateFailureMessage(email string, err error) string {
	switch {
	case errors.Is(err, ErrEmptyPassword):
		return "Invalid Password. The password cannot be empty. Please try again."
	case errors.Is(err, domain.ErrClaimsNotAdded):
		return fmt.Sprintf("User %s created but a problem was encountered when setting up the claims for the user. %s Please contact your administrator.", email, describe(err))
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return fmt.Sprintf("A user already exists with email address %s. Please try again.", email)
	default:
		return fmt.Sprintf("Failed to create the new user. %s Please try again.", describe(err))
	}
}

func (c *Console) resetInteractive(ctx context.Context) (string, error) {
	c.println()
	c.println("Enter the username of the user you would like to reset the password for.")
	userName, err := c.readLine()
	if err != nil {
		return "", err
	}

	if err := c.Reset(ctx, userName); err != nil {
		if errors.Is(err, io.EOF) {
			return "", err
		}
		return ResetFailureMessage(userName, err), nil
	}
	return "The password reset completed successfully. Please select another option.", nil
}

// resetError marks a failure of the reset itself, after the user was found
type resetError struct {
	err error
}

func (e *resetError) Error() string { return "password reset failed: " + e.err.Error() }

func (e *resetError) Unwrap() error { return e.err }

// Reset asks for and sets a new password for userName
func (c *Console) Reset(ctx context.Context, userName string) error {
	if _, err := c.users.FindByName(ctx, userName); err != nil {
		return err
	}

	c.println()
	c.println(fmt.Sprintf("User %s found successfully. Please enter a new password for the user", userName))
	pw, err := c.readSecret()
	if err != nil {
		return err
	}

	if err := c.users.ResetPassword(ctx, userName, pw); err != nil {
		return &resetError{err: err}
	}
	return nil
}

// ResetFailureMessage is the text shown when resetting the password of
// userName failed
func ResetFailureMessage(userName string, err error) string {
	var rerr *resetError
	switch {
	case errors.As(err, &rerr):
		return fmt.Sprintf("Password reset failed. %s Please try again.", describe(rerr.err))
	case errors.Is(err, domain.ErrUserNotFound):
		return fmt.Sprintf("No user was found with the username %s. Please try again.", userName)
	default:
		return fmt.Sprintf("Password reset failed. %s Please try again.", describe(err))
	}
}

// describe returns the user facing part of err
func describe(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) print(s string) {
	fmt.Fprint(c.out, s)
}

func (c *Console) println(a ...any) {
	fmt.Fprintln(c.out, a...)
}
