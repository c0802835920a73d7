package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/imajine/core"
	"github.com/trezcool/imajine/core/user"
)

// addUser updates or creates a user.User. Setting courseCode makes it a student.
func (cli *commandLine) addUser(email, firstName, lastName, courseCode, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email}
	}
	usr.FirstName = core.CleanString(firstName)
	usr.LastName = core.CleanString(lastName)
	if code := core.CleanCode(courseCode); code != "" {
		usr.Role = user.RoleStudent
		usr.CourseCode = code
		if usr.Year == 0 {
			usr.Year = 1
		}
	} else {
		usr.Role = user.RoleCoordinator
		usr.CourseCode = ""
		usr.Year = 0
		usr.AccessLevel = "FULL"
	}

	if err = user.ValidatePassword(cli.validate, pwd, usr); err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrSvc.Save(ctx, usr)
	return err
}
