package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/trades-marketplace/internal/model"
	"github.com/iliyamo/trades-marketplace/internal/service"
)

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req validation.Validatable) error {
	if err := c.Bind(req); err != nil {
		return service.BadRequest("invalid request body")
	}
	return req.Validate()
}

// idParam parses the numeric path parameter name.
func idParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, service.BadRequest("invalid " + name)
	}
	return id, nil
}

// enum accepts empty values and values for which valid returns true.
func enum(valid func(string) bool, msg string) validation.Rule {
	return validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil || validation.IsEmpty(v) {
			return nil
		}
		if !valid(fmt.Sprint(v)) {
			return errors.New(msg)
		}
		return nil
	})
}

var (
	validRole          = enum(func(s string) bool { return model.Role(s).Valid() }, "must be a valid role")
	validPaymentMethod = enum(func(s string) bool { return model.PaymentMethod(s).Valid() }, "must be a valid payment method")
	validWorkStatus    = enum(func(s string) bool { return model.WorkStatus(s).Valid() }, "must be a valid status")
)

// nonNegative checks decimal amounts.  decimal.Decimal is a driver.Valuer,
// so the value is inspected directly instead of through validation.Indirect.
var nonNegative = validation.By(func(value interface{}) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		d = *v
	}
	if d.IsNegative() {
		return errors.New("must be no less than 0")
	}
	return nil
})

// ----- auth -----

type registerReq struct {
	Name           string     `json:"name"`
	Lastname       string     `json:"lastname"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	Role           model.Role `json:"role"`
	ProfilePicture string     `json:"profile_picture"`
	Password       string     `json:"password"`
}

func (r *registerReq) Validate() error {
	r.Password = strings.TrimSpace(r.Password)
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Lastname, validation.Required, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Phone, validation.Length(0, 30)),
		validation.Field(&r.Role, validRole),
		validation.Field(&r.ProfilePicture, validation.Length(0, 512), is.URL),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type requestResetReq struct {
	Email string `json:"email"`
}

func (r *requestResetReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type resetPasswordReq struct {
	ResetPasswordToken string `json:"reset_password_token"`
	Password           string `json:"password"`
}

func (r *resetPasswordReq) Validate() error {
	r.Password = strings.TrimSpace(r.Password)
	return validation.ValidateStruct(r,
		validation.Field(&r.ResetPasswordToken, validation.Required, is.UUIDv4),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

// ----- user -----

type updateUserReq struct {
	Name        *string     `json:"name"`
	Lastname    *string     `json:"lastname"`
	Email       *string     `json:"email"`
	Phone       *string     `json:"phone"`
	Description *string     `json:"description"`
	Password    *string     `json:"password"`
	Role        *model.Role `json:"role"`
}

func (r *updateUserReq) Validate() error {
	if r.Password != nil {
		p := strings.TrimSpace(*r.Password)
		r.Password = &p
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(3, 100)),
		validation.Field(&r.Lastname, validation.NilOrNotEmpty, validation.Length(3, 100)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&r.Phone, validation.Length(0, 30)),
		validation.Field(&r.Description, validation.Length(0, 2000)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(6, 72)),
		validation.Field(&r.Role, validation.NilOrNotEmpty, validRole),
	)
}

func (r updateUserReq) input() service.UpdateInput {
	return service.UpdateInput{
		Name:        r.Name,
		Lastname:    r.Lastname,
		Email:       r.Email,
		Phone:       r.Phone,
		Description: r.Description,
		Password:    r.Password,
		Role:        r.Role,
	}
}

type rateReq struct {
	Rating int `json:"rating"`
}

func (r *rateReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Rating, validation.Required, validation.Min(1), validation.Max(5)),
	)
}

// ----- work -----

type createWorkReq struct {
	Address         string              `json:"address"`
	Service         string              `json:"service"`
	Description     string              `json:"description"`
	Value           decimal.Decimal     `json:"value"`
	Commission      decimal.Decimal     `json:"commission"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	Status          model.WorkStatus    `json:"status"`
	BudgetNumber    *uint32             `json:"budget_number"`
	ClientID        uint64              `json:"client_id"`
	ProjectLeaderID uint64              `json:"project_leader_id"`
}

func (r *createWorkReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Address, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Service, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.Value, nonNegative),
		validation.Field(&r.Commission, nonNegative),
		validation.Field(&r.PaymentMethod, validation.Required, validPaymentMethod),
		validation.Field(&r.Status, validWorkStatus),
		validation.Field(&r.BudgetNumber, validation.NotNil),
		validation.Field(&r.ClientID, validation.Required),
		validation.Field(&r.ProjectLeaderID, validation.Required),
	)
}

func (r createWorkReq) input() service.CreateWorkInput {
	return service.CreateWorkInput{
		Address:         r.Address,
		Service:         r.Service,
		Description:     r.Description,
		Value:           r.Value,
		Commission:      r.Commission,
		PaymentMethod:   r.PaymentMethod,
		Status:          r.Status,
		BudgetNumber:    *r.BudgetNumber,
		ClientID:        r.ClientID,
		ProjectLeaderID: r.ProjectLeaderID,
	}
}

type updateWorkReq struct {
	Address         *string              `json:"address"`
	Service         *string              `json:"service"`
	Description     *string              `json:"description"`
	Value           *decimal.Decimal     `json:"value"`
	Commission      *decimal.Decimal     `json:"commission"`
	PaymentMethod   *model.PaymentMethod `json:"payment_method"`
	Status          *model.WorkStatus    `json:"status"`
	ClientID        *uint64              `json:"client_id"`
	ProjectLeaderID *uint64              `json:"project_leader_id"`
}

func (r *updateWorkReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Address, validation.NilOrNotEmpty),
		validation.Field(&r.Service, validation.NilOrNotEmpty),
		validation.Field(&r.Value, nonNegative),
		validation.Field(&r.Commission, nonNegative),
		validation.Field(&r.PaymentMethod, validation.NilOrNotEmpty, validPaymentMethod),
		validation.Field(&r.Status, validation.NilOrNotEmpty, validWorkStatus),
		validation.Field(&r.ClientID, validation.NilOrNotEmpty),
		validation.Field(&r.ProjectLeaderID, validation.NilOrNotEmpty),
	)
}

func (r updateWorkReq) input() service.UpdateWorkInput {
	return service.UpdateWorkInput{
		Address:         r.Address,
		Service:         r.Service,
		Description:     r.Description,
		Value:           r.Value,
		Commission:      r.Commission,
		PaymentMethod:   r.PaymentMethod,
		Status:          r.Status,
		ClientID:        r.ClientID,
		ProjectLeaderID: r.ProjectLeaderID,
	}
}

// ----- email -----

type attachmentReq struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (a attachmentReq) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&a.Content, validation.Required),
	)
}

type emailReq struct {
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Message     string          `json:"message"`
	Attachments []attachmentReq `json:"attachments"`
}

func (r *emailReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.Length(0, 30)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Message, validation.Required, validation.Length(1, 10000)),
		validation.Field(&r.Attachments),
	)
}

func (r emailReq) message() service.ContactMessage {
	msg := service.ContactMessage{Name: r.Name, Phone: r.Phone, Email: r.Email, Message: r.Message}
	for _, a := range r.Attachments {
		msg.Attachments = append(msg.Attachments, service.Attachment{Filename: a.Name, Content: a.Content})
	}
	return msg
}
