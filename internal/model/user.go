package model

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name  string   `gorm:"size:100;not null" json:"name"`
	Email string   `gorm:"size:100;unique;not null" json:"email"`
	Role  UserRole `gorm:"type:enum('student','teacher','admin');default:'student'" json:"role"`
}

func (User) TableName() string {
	return "users"
}

// Registration 正式考试的报名记录，姓名以此为准
type Registration struct {
	BaseModel
	RegistrationNo string `gorm:"size:64;uniqueIndex;not null" json:"registrationNo"`
	UserID         uint   `gorm:"index" json:"userId"`
	TestID         string `gorm:"index;type:varchar(36)" json:"testId"`
	StudentName    string `gorm:"size:100;not null" json:"studentName"`
}

func (Registration) TableName() string {
	return "registrations"
}
