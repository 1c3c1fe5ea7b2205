package domain

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"PATIENT", RolePatient, true},
		{"doctor", RoleDoctor, true},
		{" Admin ", RoleAdmin, true},
		{"nurse", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRole_SelfRegistrable(t *testing.T) {
	if !RolePatient.SelfRegistrable() || !RoleDoctor.SelfRegistrable() {
		t.Error("patients and doctors should be able to self-register")
	}
	if RoleAdmin.SelfRegistrable() {
		t.Error("admins must not self-register")
	}
}

func TestUser_Validate(t *testing.T) {
	valid := User{ID: "u1", Email: "a@x.com", PasswordHash: "h", Role: RolePatient}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	tests := []struct {
		name   string
		mutate func(u *User)
	}{
		{"no id", func(u *User) { u.ID = "" }},
		{"no email", func(u *User) { u.Email = "" }},
		{"no hash", func(u *User) { u.PasswordHash = "" }},
		{"bad role", func(u *User) { u.Role = "NURSE" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := valid
			tt.mutate(&u)
			if err := u.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
