// Package seed 导入试卷、账号与报名记录，供部署初始化和演示环境使用。
package seed

import (
	"context"
	"fmt"
	"institute_backend/internal/model"
	"io"

	"gopkg.in/yaml.v3"
)

type File struct {
	Users         []User         `yaml:"users"`
	Tests         []Test         `yaml:"tests"`
	Registrations []Registration `yaml:"registrations"`
}

type User struct {
	ID    uint   `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type Test struct {
	ID              string     `yaml:"id"`
	Title           string     `yaml:"title"`
	DurationMinutes int        `yaml:"duration_minutes"`
	TotalMarks      int        `yaml:"total_marks"`
	Published       bool       `yaml:"published"`
	Questions       []Question `yaml:"questions"`
}

type Question struct {
	Text          string   `yaml:"text"`
	Options       []string `yaml:"options"`
	CorrectOption int      `yaml:"correct_option"`
	Marks         int      `yaml:"marks"`
	Explanation   string   `yaml:"explanation"`
}

type Registration struct {
	RegistrationNo string `yaml:"registration_no"`
	UserID         uint   `yaml:"user_id"`
	TestID         string `yaml:"test_id"`
	StudentName    string `yaml:"student_name"`
}

// Decode 解析并校验导入文件，试卷定义不合法时整体拒绝
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	for i, t := range f.Tests {
		if t.ID == "" {
			return nil, fmt.Errorf("tests[%d]: id is required", i)
		}
		if err := t.Model().Validate(); err != nil {
			return nil, err
		}
	}
	for i, r := range f.Registrations {
		if r.RegistrationNo == "" || r.StudentName == "" {
			return nil, fmt.Errorf("registrations[%d]: registration_no and student_name are required", i)
		}
	}
	return &f, nil
}

func (t Test) Model() *model.Test {
	test := &model.Test{
		Title:           t.Title,
		DurationMinutes: t.DurationMinutes,
		TotalMarks:      t.TotalMarks,
		IsPublished:     t.Published,
	}
	test.ID = t.ID
	for i, q := range t.Questions {
		marks := q.Marks
		if marks == 0 {
			marks = 1
		}
		test.Questions = append(test.Questions, model.Question{
			TestID:        t.ID,
			Text:          q.Text,
			Options:       model.StringList(q.Options),
			CorrectOption: q.CorrectOption,
			Marks:         marks,
			Explanation:   q.Explanation,
			Order:         i + 1,
		})
	}
	return test
}

type Store interface {
	UpsertUser(ctx context.Context, user *model.User) error
	SaveTest(ctx context.Context, test *model.Test) error
	UpsertRegistration(ctx context.Context, reg *model.Registration) error
}

// Apply 按 用户 -> 试卷 -> 报名 的顺序写入，可重复执行
func Apply(ctx context.Context, store Store, f *File) error {
	for _, u := range f.Users {
		user := &model.User{Name: u.Name, Email: u.Email, Role: model.UserRole(u.Role)}
		user.ID = u.ID
		if user.Role == "" {
			user.Role = model.Student
		}
		if err := store.UpsertUser(ctx, user); err != nil {
			return fmt.Errorf("user %s: %w", u.Email, err)
		}
	}
	for _, t := range f.Tests {
		if err := store.SaveTest(ctx, t.Model()); err != nil {
			return fmt.Errorf("test %s: %w", t.ID, err)
		}
	}
	for _, r := range f.Registrations {
		reg := &model.Registration{
			RegistrationNo: r.RegistrationNo,
			UserID:         r.UserID,
			TestID:         r.TestID,
			StudentName:    r.StudentName,
		}
		if err := store.UpsertRegistration(ctx, reg); err != nil {
			return fmt.Errorf("registration %s: %w", r.RegistrationNo, err)
		}
	}
	return nil
}
