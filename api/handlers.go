package api

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/xraph/vesting"
	"github.com/xraph/vesting/account"
	"github.com/xraph/vesting/chain"
	"github.com/xraph/vesting/command"
)

type instructionBody struct {
	Kind        string            `json:"kind"`
	Instruction chain.Instruction `json:"instruction"`
}

type responseBody struct {
	CommandID    string              `json:"command_id"`
	Action       string              `json:"action"`
	Attributes   []vesting.Attribute `json:"attributes"`
	Instructions []instructionBody   `json:"instructions"`
}

func toResponseBody(r *vesting.Response) *responseBody {
	body := &responseBody{
		CommandID:    r.CommandID.String(),
		Action:       r.Action,
		Attributes:   r.Attributes,
		Instructions: make([]instructionBody, 0, len(r.Instructions)),
	}
	if body.Attributes == nil {
		body.Attributes = []vesting.Attribute{}
	}
	for _, ins := range r.Instructions {
		body.Instructions = append(body.Instructions, instructionBody{Kind: ins.Kind(), Instruction: ins})
	}
	return body
}

func (s *Server) env(c *fiber.Ctx) (vesting.Env, error) {
	sender := c.Get(SenderHeader)
	if sender == "" {
		return vesting.Env{}, vesting.ValidationError{Field: SenderHeader, Message: "header is required"}
	}
	return vesting.Env{Sender: sender, Now: s.clock()}, nil
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.engine.Store().Ping(c.UserContext()); err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) getSchema(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.SendString(command.Schema())
}

func (s *Server) instantiate(c *fiber.Ctx) error {
	env, err := s.env(c)
	if err != nil {
		return err
	}
	var p vesting.InstantiateParams
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrInvalidInput, err)
	}
	resp, err := s.engine.Instantiate(c.UserContext(), env, p)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toResponseBody(resp))
}

func (s *Server) execute(c *fiber.Ctx) error {
	env, err := s.env(c)
	if err != nil {
		return err
	}

	body := c.Body()
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrInvalidInput, err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrInvalidInput, err)
	}
	cmd, err := command.Decode(body)
	if err != nil {
		return fmt.Errorf("%w: %w", vesting.ErrInvalidInput, err)
	}

	resp, err := s.engine.Execute(c.UserContext(), env, cmd)
	if err != nil {
		return err
	}
	return c.JSON(toResponseBody(resp))
}

func (s *Server) getConfig(c *fiber.Ctx) error {
	cfg, err := s.engine.GetConfig(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

func (s *Server) getPrice(c *fiber.Ctx) error {
	t, err := s.engine.GetPrice(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(t)
}

func (s *Server) getVestingParameters(c *fiber.Ctx) error {
	crv, err := s.engine.GetVestingParameters(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(crv)
}

func (s *Server) getTotal(c *fiber.Ctx) error {
	total, err := s.engine.GetTotal(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"total": total})
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	opts := account.ListOpts{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return vesting.ValidationError{Field: "limit", Message: "limit and offset must be non-negative"}
	}
	entries, err := s.engine.GetAllUserInfo(c.UserContext(), opts)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []*account.Entry{}
	}
	return c.JSON(entries)
}

func (s *Server) getUser(c *fiber.Ctx) error {
	e, err := s.engine.GetUserInfo(c.UserContext(), c.Params("wallet"))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

// getPending evaluates at the server clock, or at the "at" query parameter.
func (s *Server) getPending(c *fiber.Ctx) error {
	now := s.clock()
	if at := c.Query("at"); at != "" {
		v, err := strconv.ParseUint(at, 10, 64)
		if err != nil {
			return vesting.ValidationError{Field: "at", Message: "must be an unsigned integer", Err: vesting.ErrInvalidInput}
		}
		now = v
	}
	wallet := c.Params("wallet")
	pending, err := s.engine.GetPendingTokens(c.UserContext(), wallet, now)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"wallet": wallet, "at": now, "pending": pending})
}

func (s *Server) getBalance(c *fiber.Ctx) error {
	coins, err := s.engine.GetBalance(c.UserContext(), c.Params("wallet"))
	if err != nil {
		return err
	}
	return c.JSON(coins)
}
