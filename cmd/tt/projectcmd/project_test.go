package projectcmder

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"
)

func testProjectCmd(out *bytes.Buffer, args ...string) *cobra.Command {
	cmd := NewProjectCmd()
	cmd.PersistentFlags().String("config-dir", "", "override the credentials directory")
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	return cmd
}

var _ = Describe("Project Command", func() {
	Describe("NewProjectCmd", func() {
		It("registers add, list, get, data, update, and delete", func() {
			cmd := NewProjectCmd()
			Expect(cmd.Use).To(Equal("project"))

			var names []string
			for _, sub := range cmd.Commands() {
				names = append(names, sub.Name())
			}
			Expect(names).To(ContainElements("add", "list", "get", "data", "update", "delete"))
		})
	})

	Describe("add", func() {
		It("exposes color and view flags", func() {
			cmd := NewProjectCmd()
			add, _, err := cmd.Find([]string{"add"})
			Expect(err).NotTo(HaveOccurred())

			Expect(add.Flags().Lookup("color")).NotTo(BeNil())
			Expect(add.Flags().Lookup("view")).NotTo(BeNil())
		})

		It("requires a name argument", func() {
			out := &bytes.Buffer{}
			cmd := testProjectCmd(out, "add")
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("list", func() {
		It("rejects unknown formats before touching the network", func() {
			out := &bytes.Buffer{}
			cmd := testProjectCmd(out, "list", "--format", "csv")

			err := cmd.Execute()
			Expect(err).To(MatchError(ContainSubstring("unknown format")))
		})
	})

	Describe("update", func() {
		It("exposes name, color, and view flags", func() {
			cmd := NewProjectCmd()
			update, _, err := cmd.Find([]string{"update"})
			Expect(err).NotTo(HaveOccurred())

			for _, name := range []string{"name", "color", "view"} {
				Expect(update.Flags().Lookup(name)).NotTo(BeNil(), "missing --"+name)
			}
		})

		It("is reachable via the edit alias", func() {
			cmd := NewProjectCmd()
			update, _, err := cmd.Find([]string{"edit"})
			Expect(err).NotTo(HaveOccurred())
			Expect(update.Name()).To(Equal("update"))
		})

		It("requires a project id argument", func() {
			out := &bytes.Buffer{}
			cmd := testProjectCmd(out, "update")
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("data", func() {
		It("requires a project id argument", func() {
			out := &bytes.Buffer{}
			cmd := testProjectCmd(out, "data")
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})
})
